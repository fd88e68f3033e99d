package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type ClassifyRequest struct {
	ID    string `query:"id" json:"id" validate:"required"`
	Value string `query:"value" json:"value" validate:"required"`
}

type ScoreRequest struct {
	Records []IndicatorRecord `json:"records" validate:"dive"`
}

type HistoryRequest struct {
	From      string `query:"from" json:"from"`
	To        string `query:"to" json:"to"`
	Indicator string `query:"indicator" json:"indicator"`
	Limit     int    `query:"limit" json:"limit" default:"288" validate:"gte=1,lte=5000"`
}

type IndicatorsRequest struct {
	Tier string `query:"tier" json:"tier" validate:"omitempty,oneof=primary secondary supporting minor"`
}
