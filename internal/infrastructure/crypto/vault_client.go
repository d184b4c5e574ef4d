package crypto

import (
	"context"
	stderrors "errors"

	vault "github.com/hashicorp/vault/api"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// Secret keys read from the configured Vault path.
const (
	SecretJWT        = "jwt_secret"
	SecretLLMAPIKey  = "llm_api_key"
	SecretAuditHMAC  = "audit_signing_key"
	SecretDBPassword = "database_password"
)

// VaultClient reads service secrets from a KV v2 mount.
type VaultClient struct {
	client    *vault.Client
	log       logger.Logger
	mountPath string
}

// NewVaultClient creates and configures a new Vault client.
func NewVaultClient(cfg *config.VaultConfig, log logger.Logger) (*VaultClient, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, err
	}
	client.SetToken(cfg.Token)

	return &VaultClient{client: client, log: log, mountPath: cfg.MountPath}, nil
}

// GetSecret returns the data stored at secretPath.
func (v *VaultClient) GetSecret(ctx context.Context, secretPath string) (map[string]interface{}, error) {
	secret, err := v.client.KVv2(v.mountPath).Get(ctx, secretPath)
	if stderrors.Is(err, vault.ErrSecretNotFound) {
		return nil, errors.ErrNotFound("secret", secretPath)
	}
	if err != nil {
		return nil, errors.ErrServiceUnavailable("vault read failed").WithCause(err)
	}
	if secret == nil || secret.Data == nil {
		return nil, errors.ErrNotFound("secret", secretPath)
	}
	return secret.Data, nil
}

// ApplySecrets overrides cfg's secrets with the values stored in Vault.
// Missing keys leave the file or env value in place.
func (v *VaultClient) ApplySecrets(ctx context.Context, cfg *config.Config) error {
	data, err := v.GetSecret(ctx, cfg.Vault.SecretPath)
	if err != nil {
		return err
	}
	applied := overrideSecrets(cfg, data)
	v.log.Info(ctx, "Loaded secrets from Vault",
		logger.String("path", cfg.Vault.SecretPath),
		logger.Int("count", applied),
	)
	return nil
}

// Health reports an error when Vault is unreachable or sealed.
func (v *VaultClient) Health(ctx context.Context) error {
	h, err := v.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return err
	}
	if h.Sealed {
		return errors.ErrServiceUnavailable("vault is sealed")
	}
	return nil
}

func overrideSecrets(cfg *config.Config, data map[string]interface{}) int {
	targets := map[string]*string{
		SecretJWT:        &cfg.JWT.Secret,
		SecretLLMAPIKey:  &cfg.LLM.APIKey,
		SecretAuditHMAC:  &cfg.Audit.SigningKey,
		SecretDBPassword: &cfg.Database.Password,
	}
	applied := 0
	for key, target := range targets {
		if s, ok := data[key].(string); ok && s != "" {
			*target = s
			applied++
		}
	}
	return applied
}

//Personal.AI order the ending
