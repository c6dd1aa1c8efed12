package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/semsync/post"
	vocab "github.com/c360studio/semsync/vocabulary/post"
)

// postFlags holds the field flags shared by post add and post update.
type postFlags struct {
	id       string
	typ      string
	title    string
	content  string
	url      string
	tags     []string
	graph    string
	name     string
	nick     string
	email    string
	homepage string
	image    string
}

func (f *postFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.typ, "type", "", "Post type (entry, link, wiki, chat, profile)")
	fl.StringVar(&f.title, "title", "", "Title")
	fl.StringVar(&f.content, "content", "", "Body text")
	fl.StringVar(&f.url, "url", "", "Linked URL")
	fl.StringSliceVar(&f.tags, "tag", nil, "Tag (repeatable)")
	fl.StringVar(&f.graph, "graph", "", "Named graph IRI")
	fl.StringVar(&f.name, "name", "", "Profile name")
	fl.StringVar(&f.nick, "nick", "", "Profile nickname")
	fl.StringVar(&f.email, "email", "", "Profile email")
	fl.StringVar(&f.homepage, "homepage", "", "Profile homepage")
	fl.StringVar(&f.image, "image", "", "Profile image URL")
}

func (f *postFlags) input() post.Input {
	return post.Input{
		ID:       f.id,
		Type:     post.Type(f.typ),
		Title:    f.title,
		Content:  f.content,
		URL:      f.url,
		Tags:     f.tags,
		Graph:    f.graph,
		Name:     f.name,
		Nick:     f.nick,
		Email:    f.email,
		Homepage: f.homepage,
		Image:    f.image,
	}
}

// overlay applies the flags the user set on top of an existing post.
func (f *postFlags) overlay(cmd *cobra.Command, p *post.Post) post.Input {
	in := post.Input{
		Type:     p.Type,
		Title:    p.Title,
		Content:  p.Content,
		URL:      p.URL,
		Tags:     p.Tags,
		Name:     p.Name,
		Nick:     p.Nick,
		Email:    p.Email,
		Homepage: p.Homepage,
		Image:    p.Image,
		Accounts: p.Accounts,
	}
	set := f.input()
	changed := cmd.Flags().Changed
	if changed("type") {
		in.Type = set.Type
	}
	if changed("title") {
		in.Title = set.Title
	}
	if changed("content") {
		in.Content = set.Content
	}
	if changed("url") {
		in.URL = set.URL
	}
	if changed("tag") {
		in.Tags = set.Tags
	}
	if changed("graph") {
		in.Graph = set.Graph
	}
	if changed("name") {
		in.Name = set.Name
	}
	if changed("nick") {
		in.Nick = set.Nick
	}
	if changed("email") {
		in.Email = set.Email
	}
	if changed("homepage") {
		in.Homepage = set.Homepage
	}
	if changed("image") {
		in.Image = set.Image
	}
	return in
}

func postCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create, read and delete posts in the local graph",
	}
	cmd.AddCommand(postAddCmd(g), postUpdateCmd(g), postGetCmd(g), postListCmd(g), postDeleteCmd(g), postTagsCmd(g), postFieldsCmd())
	return cmd
}

func postAddCmd(g *globals) *cobra.Command {
	f := &postFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, app *App, _ string) error {
				id, added, err := app.posts.Create(f.input())
				if err != nil {
					return err
				}
				if err := app.Save(ctx); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "added": added})
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.id, "id", "", "Post identifier (generated when empty)")
	return cmd
}

func postUpdateCmd(g *globals) *cobra.Command {
	f := &postFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an existing post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, app *App, _ string) error {
				existing, ok := app.posts.Get(args[0])
				if !ok {
					return fmt.Errorf("post %s not found", args[0])
				}
				added, err := app.posts.Update(existing.ID, f.overlay(cmd, existing))
				if err != nil {
					return err
				}
				if err := app.Save(ctx); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"id": existing.ID, "added": added})
			})
		},
	}
	f.register(cmd)
	return cmd
}

func postGetCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(_ context.Context, app *App, _ string) error {
				p, ok := app.posts.Get(args[0])
				if !ok {
					return fmt.Errorf("post %s not found", args[0])
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}
}

func postListCmd(g *globals) *cobra.Command {
	var filter struct {
		typ, tag, graph string
		limit           int
	}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(_ context.Context, app *App, _ string) error {
				posts := app.posts.List(post.Filter{
					Type:  post.Type(filter.typ),
					Tag:   filter.tag,
					Graph: filter.graph,
					Limit: filter.limit,
				})
				if posts == nil {
					posts = []post.Post{}
				}
				return printJSON(cmd.OutOrStdout(), posts)
			})
		},
	}
	cmd.Flags().StringVar(&filter.typ, "type", "", "Only posts of this type")
	cmd.Flags().StringVar(&filter.tag, "tag", "", "Only posts with this tag")
	cmd.Flags().StringVar(&filter.graph, "graph", "", "Only posts in this named graph")
	cmd.Flags().IntVar(&filter.limit, "limit", 0, "Maximum number of posts (0 = all)")
	return cmd
}

func postDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, app *App, _ string) error {
				if !app.posts.Delete(args[0]) {
					return fmt.Errorf("post %s not found", args[0])
				}
				return app.Save(ctx)
			})
		},
	}
}

func postTagsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags with post counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(_ context.Context, app *App, _ string) error {
				tags := app.posts.Tags()
				if tags == nil {
					tags = []post.TagCount{}
				}
				return printJSON(cmd.OutOrStdout(), tags)
			})
		},
	}
}

// fieldInfo is one row of the post fields listing.
type fieldInfo struct {
	Name        string `json:"name"`
	IRI         string `json:"iri"`
	DataType    string `json:"datatype"`
	Description string `json:"description"`
}

func postFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the predicates posts are stored under",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := vocab.Fields()
			out := make([]fieldInfo, 0, len(fields))
			for _, f := range fields {
				out = append(out, fieldInfo{
					Name:        f.Name,
					IRI:         f.StandardIRI,
					DataType:    f.DataType,
					Description: f.Description,
				})
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
