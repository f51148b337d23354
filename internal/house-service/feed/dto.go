package feed

// ClientMsg é a mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
type ClientMsg struct {
	Type  string `json:"type"`
	House string `json:"house"` // requerido em subscribe/unsubscribe
}

// ServerMsg confirma assinaturas e responde pings
type ServerMsg struct {
	Type  string `json:"type"` // subscribed | unsubscribed | pong | error
	House string `json:"house,omitempty"`
	Error string `json:"error,omitempty"`
}
