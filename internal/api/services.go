package api

import "github.com/snipstash/snipstash-server/internal/service"

// Services groups the business logic services used by the API server.
type Services struct {
	Snippets *service.SnippetService
	Auth     *service.AuthService
}
