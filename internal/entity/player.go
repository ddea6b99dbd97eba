package entity

type Player struct {
	ConnectionID string `json:"id"`
	Name         string `json:"name"`
	Number       Cell   `json:"playerNumber"`
}
