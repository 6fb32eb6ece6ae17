// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - The "sessions" command.
//
// Subcommands:
//   list (default)        List chats, most recently updated first
//   search QUERY          Search titles and message text
//     --limit N           Maximum hits (default: 20)
//   rename ID TITLE       Rename a chat
//   delete ID --confirm   Delete a chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/search"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/internal/util"
)

const (
	defaultSearchLimit = 20
	commandTimeout     = 30 * time.Second
)

// HandleSessions handles the "sessions" command.
func HandleSessions(env *Env) error {
	p := NewArgParser(env.Args.Raw, "confirm", "json")
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch sub := strings.ToLower(p.Subcommand()); sub {
	case "", "list", "ls":
		return sessionsList(ctx, env)
	case "search", "find":
		query := JoinPositionalArgs(p, 1)
		if query == "" {
			return ErrMissingArgument("QUERY", `citeview sessions search "revenue"`)
		}
		return sessionsSearch(ctx, env, query, p.FlagIntOrDefault("limit", defaultSearchLimit))
	case "rename", "mv":
		id := p.Positional(1)
		if id == "" {
			return ErrMissingArgument("ID", `citeview sessions rename ID "New title"`)
		}
		return sessionsRename(ctx, env, id, JoinPositionalArgs(p, 2))
	case "delete", "rm":
		id := p.Positional(1)
		if id == "" {
			return ErrMissingArgument("ID", "citeview sessions delete ID --confirm")
		}
		if !p.BoolFlag("confirm") {
			return &UsageError{Reason: "delete is permanent; pass --confirm", Example: "citeview sessions delete " + id + " --confirm"}
		}
		return sessionsDelete(ctx, env, id)
	default:
		return NewUsageError(fmt.Sprintf("unknown sessions subcommand %q", sub))
	}
}

func sessionsList(ctx context.Context, env *Env) error {
	return OutputJSON(env.Out, env.Args.JSON, "sessions list", func() (interface{}, error) {
		metas, err := env.Store.ListSessions(ctx)
		if err != nil {
			return nil, NewCommandError("sessions", "list", "could not load chats", err)
		}
		if !env.Args.JSON {
			printSessionTable(env, metas, time.Now())
		}
		return metas, nil
	})
}

func printSessionTable(env *Env, metas []model.SessionMeta, now time.Time) {
	if len(metas) == 0 {
		fmt.Fprintln(env.Out, DimStyle.Render("No chats yet"))
		return
	}
	titles := session.DisplayTitles(metas)
	fmt.Fprintln(env.Out, TitleStyle.Render(fmt.Sprintf("Chats (%d)", len(metas))))
	for _, m := range metas {
		fmt.Fprintf(env.Out, "  %s  %s  %s\n",
			util.PadRight(m.ID, 12),
			util.PadRight(util.TruncateWidth(titles[m.ID], 40), 40),
			DimStyle.Render(session.RelativeTime(m.UpdatedAt, now)+" · "+session.FormatMessageCount(m.MessageCount)),
		)
	}
}

func sessionsSearch(ctx context.Context, env *Env, query string, limit int) error {
	return OutputJSON(env.Out, env.Args.JSON, "sessions search", func() (interface{}, error) {
		idx, err := search.New()
		if err != nil {
			return nil, err
		}
		defer idx.Close()

		if err := idx.Rebuild(ctx, env.Store); err != nil {
			return nil, NewCommandError("sessions", "search", "could not index chats", err)
		}
		hits, err := idx.Search(ctx, query, limit)
		if err != nil {
			return nil, NewCommandError("sessions", "search", "query failed", err)
		}

		if !env.Args.JSON {
			if len(hits) == 0 {
				fmt.Fprintln(env.Out, DimStyle.Render("No matches for "+query))
			}
			for _, h := range hits {
				fmt.Fprintf(env.Out, "%s  %s\n", util.PadRight(h.SessionID, 12), TitleStyle.Render(h.Title))
				if h.Snippet != "" {
					fmt.Fprintf(env.Out, "    %s\n", util.TruncateWidth(util.FirstLine(h.Snippet), 90))
				}
			}
		}
		return hits, nil
	})
}

func sessionsRename(ctx context.Context, env *Env, id, title string) error {
	title, ok := session.NormalizeTitle(title)
	if !ok {
		return ErrMissingArgument("TITLE", `citeview sessions rename `+id+` "New title"`)
	}
	return OutputJSON(env.Out, env.Args.JSON, "sessions rename", func() (interface{}, error) {
		if err := env.Store.RenameSession(ctx, id, title); err != nil {
			return nil, wrapStoreError("rename", id, err)
		}
		if !env.Args.JSON {
			fmt.Fprintf(env.Out, "%s %s -> %s\n", SuccessStyle.Render("Renamed"), id, title)
		}
		return map[string]string{"id": id, "title": title}, nil
	})
}

func sessionsDelete(ctx context.Context, env *Env, id string) error {
	return OutputJSON(env.Out, env.Args.JSON, "sessions delete", func() (interface{}, error) {
		if err := env.Store.DeleteSession(ctx, id); err != nil {
			return nil, wrapStoreError("delete", id, err)
		}
		if !env.Args.JSON {
			fmt.Fprintf(env.Out, "%s %s\n", SuccessStyle.Render("Deleted"), id)
		}
		return map[string]string{"id": id}, nil
	})
}

func wrapStoreError(action, id string, err error) error {
	if errors.Is(err, session.ErrSessionNotFound) {
		return &NotFoundError{Resource: "session", ID: id}
	}
	return NewCommandError("sessions", action, "store rejected the request", err)
}
