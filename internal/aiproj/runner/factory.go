package runner

import (
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/longkey1/aiproj/internal/foundry"
)

// Factory builds the client handle for one configuration
type Factory func(cfg config.Configuration) (*foundry.Client, error)

// NewClientFactory returns a Factory binding each configuration's endpoint
// and API version to cred. Clients are neither pooled nor cached. opts are
// applied to every client after the configuration's own settings.
func NewClientFactory(cred azcore.TokenCredential, opts ...foundry.Option) Factory {
	return func(cfg config.Configuration) (*foundry.Client, error) {
		if cred == nil {
			return nil, errors.New("no credential available")
		}
		clientOpts := append([]foundry.Option{foundry.WithAPIVersion(cfg.APIVersion)}, opts...)
		return foundry.NewClient(cfg.Endpoint, cred, clientOpts...), nil
	}
}
