package cmd

import (
	"fmt"

	"github.com/fabricsync/fabricsync/internal/config"
	"github.com/fabricsync/fabricsync/pkg/api/client"
	"github.com/fabricsync/fabricsync/pkg/apply"
	"github.com/fabricsync/fabricsync/pkg/authretry"
	"github.com/fabricsync/fabricsync/pkg/credentials"
	"github.com/fabricsync/fabricsync/pkg/crypto"
	"github.com/fabricsync/fabricsync/pkg/diff"
	"github.com/fabricsync/fabricsync/pkg/discovery"
	"github.com/fabricsync/fabricsync/pkg/gate"
	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/reconciler"
	"github.com/fabricsync/fabricsync/pkg/store"
	"github.com/fabricsync/fabricsync/pkg/store/repos"
	"github.com/fabricsync/fabricsync/pkg/types"
	"github.com/spf13/cobra"
)

// app bundles the local state every command needs: configuration, the badger
// store and the credential store built over it.
type app struct {
	cfg    *config.Config
	store  store.Store
	creds  *credentials.Store
	logger log.Logger
}

// openApp opens the local state store and credential store. Callers must
// Close it.
func openApp() (*app, error) {
	logger := log.GetDefaultLogger()

	core := store.NewBadgerStore(logger)
	if err := core.Open(cfg.StoreDir()); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	masterKey, err := crypto.LoadOrGenerateMasterKey(cfg.DataDir)
	if err != nil {
		core.Close()
		return nil, err
	}
	creds, err := credentials.NewStore(core, masterKey, logger)
	if err != nil {
		core.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: core, creds: creds, logger: logger}, nil
}

// Close releases the state store.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close state store", log.Err(err))
	}
}

// controllerFlags are the connection flags shared by every command that talks
// to a controller.
type controllerFlags struct {
	controller         string
	username           string
	password           string
	token              string
	insecureSkipVerify bool
	caFile             string
	useCurrentIdentity bool
	forceNewCredential bool
	saveCredential     bool
}

// register adds the shared connection flags to a command.
func (f *controllerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.controller, "controller", "", "Controller address (required)")
	cmd.Flags().StringVar(&f.username, "username", "", "Username for controller authentication")
	cmd.Flags().StringVar(&f.password, "password", "", "Password for controller authentication (discouraged; prompts when omitted)")
	cmd.Flags().StringVar(&f.token, "token", "", "Bearer token for controller authentication")
	cmd.Flags().BoolVar(&f.insecureSkipVerify, "insecure-skip-verify", false, "Skip TLS certificate verification for this session")
	cmd.Flags().StringVar(&f.caFile, "ca-file", "", "CA bundle for verifying the controller certificate")
	cmd.Flags().BoolVar(&f.useCurrentIdentity, "use-current-identity", false, "Reuse the stored credential without prompting")
	cmd.Flags().BoolVar(&f.forceNewCredential, "force-new-credential", false, "Ignore any stored credential and prompt for a new one")
	cmd.Flags().BoolVar(&f.saveCredential, "save-credential", false, "Persist the working credential after a successful run")
	cmd.MarkFlagRequired("controller")
}

// session is one authenticated controller connection with its discovery,
// gate and reconcile machinery wired up.
type session struct {
	api        *client.Client
	recovery   *authretry.Manager
	cacheStore *discovery.CacheStore
	discoverer *discovery.Discoverer
	gate       *gate.Gate
	controller string
}

// openSession resolves a credential, builds the per-controller API client
// behind the auth recovery wrapper and wires discovery and the gate over it.
func (a *app) openSession(flags *controllerFlags) (*session, error) {
	cred, err := a.resolveCredential(flags)
	if err != nil {
		return nil, err
	}

	recovery := authretry.NewManager(authretry.Options{
		MaxRetries:  a.cfg.Auth.MaxRetries,
		Credentials: a.creds,
		States:      repos.NewRetryStateRepo(a.store, a.cfg.RetryWindow()),
		Logger:      a.logger,
	})

	opts := client.DefaultClientOptions()
	opts.BaseURL = flags.controller
	opts.Credential = cred
	opts.RequestTimeout = a.cfg.RequestTimeout()
	opts.Recovery = recovery
	opts.PersistCredentials = flags.saveCredential
	opts.TLS = client.TLSOptions{
		InsecureSkipVerify: flags.insecureSkipVerify || a.cfg.TLS.InsecureSkipVerify,
		CAFile:             firstNonEmpty(flags.caFile, a.cfg.TLS.CAFile),
	}

	api, err := client.NewClient(opts)
	if err != nil {
		return nil, err
	}

	cacheStore := discovery.NewCacheStore(a.cfg.CacheDir(), a.logger)
	discoverer := discovery.NewDiscoverer(api, cacheStore, &discovery.Options{
		Workers:                    a.cfg.Discovery.Workers,
		ProbeTimeout:               a.cfg.ProbeTimeout(),
		MinimumSuccessfulEndpoints: a.cfg.Discovery.MinSuccessful,
		CacheTTL:                   a.cfg.CacheTTL(),
	}, a.logger)

	return &session{
		api:        api,
		recovery:   recovery,
		cacheStore: cacheStore,
		discoverer: discoverer,
		gate:       gate.New(discoverer, cacheStore, a.logger),
		controller: flags.controller,
	}, nil
}

// resolveCredential picks the credential for a session: explicit flags win,
// then the stored credential, then an interactive prompt. A prompted
// credential is persisted when --save-credential is set.
func (a *app) resolveCredential(flags *controllerFlags) (*types.Credential, error) {
	if flags.token != "" {
		return &types.Credential{Token: flags.token, Scheme: types.SchemeBearer}, nil
	}
	if flags.username != "" {
		cred := &types.Credential{Username: flags.username, Password: flags.password, Scheme: types.SchemeBasic}
		if cred.Password == "" {
			prompted, err := credentials.PromptCredential(flags.controller)
			if err != nil {
				return nil, err
			}
			if prompted.Username != "" {
				cred.Username = prompted.Username
			}
			cred.Password = prompted.Password
		}
		return cred, nil
	}

	if !flags.forceNewCredential {
		stored, err := a.creds.Get(flags.controller)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			return stored, nil
		}
		if flags.useCurrentIdentity {
			return nil, types.NewValidationError(
				fmt.Sprintf("no stored credential for %s; run 'fabricsync credentials save' first", flags.controller))
		}
	}

	cred, err := credentials.PromptCredential(flags.controller)
	if err != nil {
		return nil, err
	}
	if flags.saveCredential {
		if err := a.creds.Save(flags.controller, cred); err != nil {
			return nil, err
		}
	}
	return cred, nil
}

// newReconciler assembles the reconcile workflow over an open session.
func (a *app) newReconciler(s *session, role types.ManagerRole) (*reconciler.Reconciler, *client.ConfigClient) {
	configClient := client.NewConfigClient(s.api, role)
	pipeline := apply.NewPipeline(configClient, a.cfg.Discovery.Workers, a.logger)
	history := reconciler.NewHistoryRepo(a.store)
	return reconciler.New(s.gate, configClient, diff.NewEngine(a.logger), pipeline, history, a.logger), configClient
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
