package models

type Character struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Game string `json:"game"`

	ImageKey *string `json:"-"`
	ImageURL *string `json:"image_url,omitempty"`
}

// CharacterUsage агрегирует статистику использования персонажа
// по завершённым матчам.
type CharacterUsage struct {
	CharacterID  int     `json:"character_id"`
	TotalMatches int     `json:"total_matches"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"win_rate"`
}
