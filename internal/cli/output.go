package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pribylovaa/go-social-client/internal/models"
)

// printer пишет результат команды в text или json.
type printer struct {
	w     io.Writer
	json  bool
	media func(string) string
}

func (p *printer) emit(v any, text func(w io.Writer)) error {
	if p.json {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(p.w)
	return nil
}

func (p *printer) message(msg string) error {
	return p.emit(models.DetailResponse{Detail: msg}, func(w io.Writer) {
		fmt.Fprintln(w, msg)
	})
}

func (p *printer) user(u *models.UserPublic) error {
	return p.emit(u, func(w io.Writer) { p.writeUser(w, u) })
}

func (p *printer) writeUser(w io.Writer, u *models.UserPublic) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%d\n", u.ID)
	fmt.Fprintf(tw, "username\t@%s\n", u.Username)
	if u.Bio != "" {
		fmt.Fprintf(tw, "bio\t%s\n", u.Bio)
	}
	if u.Location != "" {
		fmt.Fprintf(tw, "location\t%s\n", u.Location)
	}
	if u.Website != "" {
		fmt.Fprintf(tw, "website\t%s\n", u.Website)
	}
	if a := p.media(u.AvatarURL()); a != "" {
		fmt.Fprintf(tw, "avatar\t%s\n", a)
	}
	fmt.Fprintf(tw, "followers\t%d\n", u.FollowersCount)
	fmt.Fprintf(tw, "following\t%d\n", u.FollowingCount)
	if !u.DateJoined.IsZero() {
		fmt.Fprintf(tw, "joined\t%s\n", u.DateJoined.Format("January 2006"))
	}
	_ = tw.Flush()
}

func (p *printer) writePost(w io.Writer, post models.Post) {
	liked := " "
	if post.Liked() {
		liked = "♥"
	}
	saved := ""
	if post.IsSaved {
		saved = " [saved]"
	}

	fmt.Fprintf(w, "#%d @%s · %s · %s%s\n", post.ID, post.Author.Username,
		post.CreatedAt.Format("2006-01-02 15:04"), post.Visibility, saved)
	if post.Body != "" {
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(post.Body, "\n", "\n  "))
	}
	for _, m := range post.Media {
		fmt.Fprintf(w, "  [%s] %s\n", m.MediaType, p.media(m.File))
	}
	fmt.Fprintf(w, "  %s %d  💬 %d\n", liked, post.ReactionsCount, post.CommentsCount)
}

func (p *printer) post(post *models.Post) error {
	return p.emit(post, func(w io.Writer) { p.writePost(w, *post) })
}

func (p *printer) posts(posts []models.Post, empty string) error {
	if posts == nil {
		posts = []models.Post{}
	}
	return p.emit(posts, func(w io.Writer) { p.writePosts(w, posts, empty) })
}

func (p *printer) writePosts(w io.Writer, posts []models.Post, empty string) {
	if len(posts) == 0 {
		if empty != "" {
			fmt.Fprintln(w, empty)
		}
		return
	}
	for i, post := range posts {
		if i > 0 {
			fmt.Fprintln(w)
		}
		p.writePost(w, post)
	}
}

func (p *printer) comments(list []models.Comment) error {
	if list == nil {
		list = []models.Comment{}
	}
	return p.emit(list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, "No comments yet.")
			return
		}
		for _, c := range list {
			fmt.Fprintf(w, "@%s: %s\n", c.User.Username, c.Body)
			for _, r := range c.Replies {
				fmt.Fprintf(w, "  ↳ @%s: %s\n", r.User.Username, r.Body)
			}
			if c.RepliesCount > len(c.Replies) {
				fmt.Fprintf(w, "  (%d replies)\n", c.RepliesCount)
			}
		}
	})
}

func (p *printer) relations(list []models.FollowRelation, pick func(models.FollowRelation) models.UserPublic) error {
	users := make([]models.UserPublic, 0, len(list))
	for _, r := range list {
		users = append(users, pick(r))
	}
	return p.emit(users, func(w io.Writer) {
		if len(users) == 0 {
			fmt.Fprintln(w, "Nobody here yet.")
			return
		}
		for _, u := range users {
			fmt.Fprintf(w, "%d\t@%s\n", u.ID, u.Username)
		}
	})
}
