package api

// Request headers understood by the API.
const (
	headerAuthorization = "Authorization"
	headerAPIKey        = "X-API-Key"
	headerClientID      = "X-Client-ID"
)

// bearerPrefix precedes the token in the Authorization header.
const bearerPrefix = "Bearer "

// Security requirements attached to operations.
var ownerSecurity = []map[string][]string{{"bearer": {}}, {"apiKey": {}}}

// Operation tags.
const (
	tagSnippets = "Snippets"
	tagPublic   = "Public"
	tagAdmin    = "Admin"
	tagAuth     = "Auth"
	tagHealth   = "Health"
)
