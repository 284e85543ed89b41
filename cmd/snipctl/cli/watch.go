package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/snipstash/snipstash-server/internal/client"
	"github.com/snipstash/snipstash-server/internal/client/listcache"
	"github.com/snipstash/snipstash-server/internal/domain"
	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
)

func newWatchCommand() *cobra.Command {
	var reconnect time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow changes to your snippets as they happen",
		Long:  "Streams change events from the server and keeps a local copy of the default listing up to date. Stop with Ctrl-C.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := s.requireOwner(ctx); err != nil {
				return err
			}

			key := listcache.NewKey(s.ownerScope(), domain.NewFilter())
			if _, err := s.loader.Load(ctx, key); err != nil {
				return explain(err)
			}
			fmt.Fprintf(s.out, "watching snippets of %s\n", s.user.Email)

			for {
				err := s.client.Watch(ctx, func(ev client.Event) {
					s.coord.ApplyRemote(ev)
					e, err := s.loader.Load(ctx, key)
					total := -1
					if err == nil {
						total = e.Total()
					}
					fmt.Fprintf(s.out, "%s  %-17s %s  (active: %d)\n",
						ev.Timestamp.Local().Format(time.TimeOnly), ev.Type, ev.SnippetID, total)
				})
				if ctx.Err() != nil {
					return nil
				}
				if domainerrors.CodeOf(err) == domainerrors.CodeUnauthorized {
					return explain(err)
				}
				if err != nil {
					s.logger.Warn("event stream ended", "error", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(reconnect):
				}
			}
		},
	}

	cmd.Flags().DurationVar(&reconnect, "reconnect", 3*time.Second, "delay before reconnecting a dropped stream")
	return cmd
}
