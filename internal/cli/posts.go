package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-social-client/internal/models"
)

func newPostCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "post",
		Short:       "Create, view, edit and delete posts",
		Annotations: protected(),
	}

	cmd.AddCommand(
		newPostCreateCmd(rt),
		newPostGetCmd(rt),
		newPostEditCmd(rt),
		newPostDeleteCmd(rt),
		newPostSaveCmd(rt),
		newPostListCmd(rt),
	)

	return cmd
}

func newPostCreateCmd(rt *runtime) *cobra.Command {
	var (
		body, visibility string
		media            []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vis, err := models.ParseVisibility(visibility)
			if err != nil {
				return err
			}
			if strings.TrimSpace(body) == "" && len(media) == 0 {
				return fmt.Errorf("post needs --body or --media")
			}

			post, err := rt.app.API.CreatePost(cmd.Context(), models.PostForm{
				Body:       body,
				Visibility: vis,
				MediaPaths: media,
			})
			if err != nil {
				return err
			}

			return rt.out.post(post)
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "post text")
	cmd.Flags().StringVar(&visibility, "visibility", string(models.VisibilityPublic), "public|friends|private")
	cmd.Flags().StringSliceVar(&media, "media", nil, "image or video files to attach")

	return cmd
}

func newPostGetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			post, err := rt.app.API.Post(cmd.Context(), id)
			if err != nil {
				return err
			}

			return rt.out.post(post)
		},
	}
}

func newPostEditCmd(rt *runtime) *cobra.Command {
	var (
		body, visibility string
		media            []string
	)

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a post; omitted fields keep their values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			cur, err := rt.app.API.Post(cmd.Context(), id)
			if err != nil {
				return err
			}

			form := models.PostForm{Body: cur.Body, Visibility: cur.Visibility, MediaPaths: media}
			if cmd.Flags().Changed("body") {
				form.Body = body
			}
			if cmd.Flags().Changed("visibility") {
				if form.Visibility, err = models.ParseVisibility(visibility); err != nil {
					return err
				}
			}

			post, err := rt.app.API.UpdatePost(cmd.Context(), id, form)
			if err != nil {
				return err
			}

			return rt.out.post(post)
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "new text")
	cmd.Flags().StringVar(&visibility, "visibility", "", "public|friends|private")
	cmd.Flags().StringSliceVar(&media, "media", nil, "files to attach")

	return cmd
}

func newPostDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := rt.app.API.DeletePost(cmd.Context(), id); err != nil {
				return err
			}

			return rt.out.message(fmt.Sprintf("Post %d deleted.", id))
		},
	}
}

func newPostSaveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "save ID",
		Short: "Save or unsave a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			out, err := rt.app.API.SaveToggle(cmd.Context(), id)
			if err != nil {
				return err
			}

			return rt.out.message(out.Detail)
		},
	}
}

func newPostListCmd(rt *runtime) *cobra.Command {
	var author int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, optionally by one author",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				posts []models.Post
				err   error
			)
			if author > 0 {
				posts, err = rt.app.API.PostsByAuthor(cmd.Context(), author)
			} else {
				posts, err = rt.app.API.Posts(cmd.Context())
			}
			if err != nil {
				return err
			}

			return rt.out.posts(posts, "No posts yet.")
		},
	}

	cmd.Flags().Int64Var(&author, "author", 0, "author user id")

	return cmd
}

// reactView — вывод команды react.
type reactView struct {
	Post    *models.Post `json:"post"`
	Outcome string       `json:"outcome"`
}

func newReactCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:         "react ID",
		Short:       "Like or unlike a post",
		Args:        cobra.ExactArgs(1),
		Annotations: protected(),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			post, err := rt.app.API.Post(cmd.Context(), id)
			if err != nil {
				return err
			}

			out, err := rt.app.React(cmd.Context(), post)
			if err != nil {
				return err
			}

			return rt.out.emit(reactView{Post: post, Outcome: out.String()}, func(w io.Writer) {
				rt.out.writePost(w, *post)
			})
		},
	}
}

func newCommentsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "comments",
		Short:       "Read and write comments",
		Annotations: protected(),
	}

	list := &cobra.Command{
		Use:   "list POST_ID",
		Short: "Show comments of a post, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			comments, err := rt.app.API.Comments(cmd.Context(), id)
			if err != nil {
				return err
			}

			return rt.out.comments(comments)
		},
	}

	add := &cobra.Command{
		Use:   "add POST_ID TEXT...",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			body := strings.TrimSpace(strings.Join(args[1:], " "))
			if body == "" {
				return fmt.Errorf("comment text is empty")
			}

			c, err := rt.app.API.CreateComment(cmd.Context(), id, body)
			if err != nil {
				return err
			}

			return rt.out.comments([]models.Comment{*c})
		},
	}

	cmd.AddCommand(list, add)

	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
