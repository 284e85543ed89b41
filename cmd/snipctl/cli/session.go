package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/snipstash/snipstash-server/internal/client"
	"github.com/snipstash/snipstash-server/internal/client/listcache"
	"github.com/snipstash/snipstash-server/internal/client/optimistic"
	"github.com/snipstash/snipstash-server/internal/domain"
	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
	"github.com/snipstash/snipstash-server/internal/logger"
)

// session bundles the client stack one command works with.
type session struct {
	out    io.Writer
	logger *logger.Logger
	client *client.Client
	cache  *listcache.Cache
	loader *listcache.Loader

	coord *optimistic.Coordinator
	user  *domain.User
}

func newClient(log *logger.Logger) (*client.Client, error) {
	opts := []client.Option{client.WithLogger(log.Logger)}
	if t := viper.GetString(keyToken); t != "" {
		opts = append(opts, client.WithToken(t))
	}
	if k := viper.GetString(keyAPIKey); k != "" {
		opts = append(opts, client.WithAPIKey(k))
	}
	return client.New(viper.GetString(keyServer), opts...)
}

func newLogger() *logger.Logger {
	return logger.New(logger.Config{
		Writer: os.Stderr,
		Format: "pretty",
		Level:  logger.ParseLevel(viper.GetString(keyLogLevel)),
	})
}

// openSession connects without requiring credentials. Use requireOwner
// before touching owner listings.
func openSession(cmd *cobra.Command) (*session, error) {
	log := newLogger()
	c, err := newClient(log)
	if err != nil {
		return nil, err
	}
	cache := listcache.New()
	return &session{
		out:    cmd.OutOrStdout(),
		logger: log,
		client: c,
		cache:  cache,
		loader: listcache.NewLoader(cache, c, listcache.WithPageSize(viper.GetInt(keyPageSize))),
	}, nil
}

// requireOwner resolves the authenticated user and sets up the mutation
// coordinator for their listings.
func (s *session) requireOwner(ctx context.Context) error {
	if s.coord != nil {
		return nil
	}
	user, err := s.client.Me(ctx)
	if err != nil {
		return explain(err)
	}
	s.user = user
	s.coord = optimistic.New(s.cache, s.client, user.ID,
		optimistic.WithLogger(s.logger.Logger),
		optimistic.OnSessionReset(func() {
			s.logger.Warn("session expired; run snipctl login again")
		}))
	return nil
}

func (s *session) ownerScope() domain.Scope {
	return domain.OwnerScope(s.user.ID)
}

// mutate runs m through the coordinator against a loaded default view,
// then reports what the view looks like afterwards.
func (s *session) mutate(ctx context.Context, m optimistic.Mutation) (optimistic.Success, error) {
	if err := s.requireOwner(ctx); err != nil {
		return optimistic.Success{}, err
	}
	key := listcache.NewKey(s.ownerScope(), domain.NewFilter())
	if _, err := s.loader.Load(ctx, key); err != nil {
		return optimistic.Success{}, explain(err)
	}

	switch out := s.coord.Mutate(ctx, m).(type) {
	case optimistic.Success:
		s.logger.Debug("mutation confirmed",
			slog.String("kind", m.Kind.String()),
			slog.String("snippet_id", out.ID))
		return out, nil
	case optimistic.Failure:
		return optimistic.Success{}, explain(out.Err)
	default:
		return optimistic.Success{}, errors.New("unexpected mutation outcome")
	}
}

// explain rewords the errors a user can act on.
func explain(err error) error {
	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeUnauthorized:
		return fmt.Errorf("not logged in or session expired (%w); run snipctl login", err)
	case domainerrors.CodeUnavailable:
		return fmt.Errorf("server unavailable, try again shortly: %w", err)
	case domainerrors.CodeInvalidState:
		return fmt.Errorf("not allowed in the snippet's current state: %w", err)
	default:
		return err
	}
}
