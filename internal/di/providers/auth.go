package providers

import (
	"github.com/samber/do/v2"

	"github.com/talespring/talespring-server/internal/auth"
	"github.com/talespring/talespring-server/internal/config"
	"github.com/talespring/talespring-server/internal/logger"
)

// ProvideTokenService provides the PASETO identity token verifier.
// A configured key is shared with the identity provider; without one the
// key is loaded from, or generated into, the data directory.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.KeyHex != "" {
		log.Info("Authentication key configured")
		return auth.NewTokenService(cfg.Auth.KeyHex, auth.DefaultTokenDuration)
	}

	key, err := auth.LoadOrGenerateKey(cfg.Storage.DataPath)
	if err != nil {
		return nil, err
	}
	log.Info("Authentication key loaded", "path", cfg.Storage.DataPath)

	return auth.NewTokenServiceFromKey(key, auth.DefaultTokenDuration)
}
