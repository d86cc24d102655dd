package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PutMappingRequest struct {
	SourceTicket string `json:"source_ticket"`
	SlaveTicket  string `json:"slave_ticket"`
	Symbol       string `json:"symbol,omitempty"`
	Size         string `json:"size,omitempty"`
}

type MappingDTO struct {
	SourceTicket string `json:"source_ticket"`
	SlaveTicket  string `json:"slave_ticket"`
	Symbol       string `json:"symbol,omitempty"`
	Size         string `json:"size,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

type PutMappingResponse struct {
	Status string `json:"status"`
}

type GetMappingResponse struct {
	Status string     `json:"status"`
	Data   MappingDTO `json:"data"`
}
