package models

// EventRequestStats is the per-event request breakdown shown on artist and
// staff dashboards.
type EventRequestStats struct {
	EventID      string           `json:"event_id"`
	Total        int              `json:"total"`
	Pending      int              `json:"pending"`
	Approved     int              `json:"approved"`
	Rejected     int              `json:"rejected"`
	Certificates int              `json:"certificates"`
	Daily        []DailySubmitted `json:"daily"`
}

type DailySubmitted struct {
	Date      string `json:"date"`
	Submitted int    `json:"submitted"`
	Approved  int    `json:"approved"`
}
