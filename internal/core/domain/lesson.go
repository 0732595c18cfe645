package domain

// LessonMaterial is the grounded context handed to the lesson composer.
// Grounded is false when nothing in the textbook matched the topic.
type LessonMaterial struct {
	Topic      string      `json:"topic"`
	Title      string      `json:"title"`
	Grounded   bool        `json:"grounded"`
	Passages   []SearchHit `json:"passages"`
	Subchapter string      `json:"subchapter,omitempty"`
	Figures    []Figure    `json:"figures"`
}
