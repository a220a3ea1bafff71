package factory

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/applizz/jobmail/internal/adapters/gmail"
	"github.com/applizz/jobmail/internal/adapters/imapmail"
	"github.com/applizz/jobmail/internal/config"
	"github.com/applizz/jobmail/internal/core"
	"github.com/applizz/jobmail/internal/utils"
)

// ConnectorFactory creates the mailbox connectors
type ConnectorFactory struct {
	cfg       *config.Config
	logger    *zap.Logger
	processor *utils.TextProcessor
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger, processor *utils.TextProcessor) *ConnectorFactory {
	return &ConnectorFactory{
		cfg:       cfg,
		logger:    logger,
		processor: processor,
	}
}

// CreateConnectors builds one connector per supported provider. The Gmail
// connector is only registered when OAuth client credentials are configured.
func (f *ConnectorFactory) CreateConnectors(credentials core.CredentialStore) (map[core.ProviderKind]core.MailboxConnector, error) {
	connectors := make(map[core.ProviderKind]core.MailboxConnector)

	gmailCfg := f.cfg.GetGmail()
	if gmailCfg.ClientID != "" {
		oauthConfig := &oauth2.Config{
			ClientID:     gmailCfg.ClientID,
			ClientSecret: gmailCfg.ClientSecret,
			RedirectURL:  gmailCfg.RedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
			Endpoint:     google.Endpoint,
		}
		gmailBackoff, err := f.cfg.GetDuration("gmail.retry_backoff")
		if err != nil {
			return nil, fmt.Errorf("invalid gmail retry backoff: %w", err)
		}
		connectors[core.ProviderGmail] = gmail.NewConnector(
			oauthConfig, credentials, f.processor, f.logger, gmailCfg.MaxRetries, gmailBackoff)
	}

	imapCfg := f.cfg.GetIMAP()
	connectTimeout, err := f.cfg.GetDuration("imap.connect_timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid imap connect timeout: %w", err)
	}
	commandTimeout, err := f.cfg.GetDuration("imap.command_timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid imap command timeout: %w", err)
	}
	retryBackoff, err := f.cfg.GetDuration("imap.retry_backoff")
	if err != nil {
		return nil, fmt.Errorf("invalid imap retry backoff: %w", err)
	}
	connectors[core.ProviderIMAP] = imapmail.NewConnector(
		f.logger, connectTimeout, commandTimeout, imapCfg.MaxRetries, retryBackoff)

	return connectors, nil
}
