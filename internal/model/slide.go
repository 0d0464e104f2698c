package model

// SlideRecord is the structured description of one slide as produced by
// the slide structurer. Bullet points keep the order the model emitted.
type SlideRecord struct {
	Title        string   `json:"title"`
	BulletPoints []string `json:"bullet_points"`
	VisualQuery  string   `json:"visual_query"`
	AccentColor  string   `json:"accent_color"`
	Layout       string   `json:"layout"`
}

// DeckOutline is the full structurer output: the ordered slide list plus
// a suggested theme background color.
type DeckOutline struct {
	Slides           []SlideRecord `json:"slides"`
	SuggestedBGColor string        `json:"suggested_bg_color"`
}
