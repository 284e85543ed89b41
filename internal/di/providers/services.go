package providers

import (
	"github.com/samber/do/v2"

	"github.com/snipstash/snipstash-server/internal/auth"
	"github.com/snipstash/snipstash-server/internal/cache"
	"github.com/snipstash/snipstash-server/internal/config"
	"github.com/snipstash/snipstash-server/internal/logger"
	"github.com/snipstash/snipstash-server/internal/service"
)

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideSnippetService provides the snippet service.
func ProvideSnippetService(i do.Injector) (*service.SnippetService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	metadataCache := do.MustInvoke[*cache.MetadataCache](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSnippetService(storeHandle.Store, service.SnippetServiceConfig{
		Events:          sseHandle.Manager,
		MetadataCache:   metadataCache,
		RetentionWindow: cfg.Recycle.RetentionWindow,
	}, log.Logger), nil
}
