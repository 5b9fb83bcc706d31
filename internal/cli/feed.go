package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-social-client/internal/feed"
	"github.com/pribylovaa/go-social-client/internal/models"
)

func newFeedCmd(rt *runtime) *cobra.Command {
	var offset, limit, pages int

	cmd := &cobra.Command{
		Use:         "feed",
		Short:       "Show the home feed",
		Args:        cobra.NoArgs,
		Annotations: protected(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				limit = rt.app.Config.Feed.PageSize
			}
			if pages <= 0 {
				pages = 1
			}

			p := feed.NewPager(rt.app.API, limit)

			var err error
			if offset > 0 {
				p.Seek(offset)
				_, err = p.LoadMore(cmd.Context())
			} else {
				_, err = p.Load(cmd.Context())
			}
			for i := 1; err == nil && i < pages && p.HasMore(); i++ {
				_, err = p.LoadMore(cmd.Context())
			}
			if err != nil {
				return err
			}

			page := feedPage{Posts: nonNil(p.Posts()), Offset: p.Offset(), HasMore: p.HasMore()}
			return rt.out.emit(page, func(w io.Writer) {
				rt.out.writePosts(w, page.Posts, "Your feed is empty. Follow someone to see their posts.")
				if page.HasMore {
					fmt.Fprintf(w, "\nMore: social feed --offset %d\n", page.Offset)
				}
			})
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "start offset")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default feed.page_size)")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")

	cmd.AddCommand(newFeedWatchCmd(rt))

	return cmd
}

// feedPage — вывод команды feed в json.
type feedPage struct {
	Posts   []models.Post `json:"posts"`
	Offset  int           `json:"offset"`
	HasMore bool          `json:"has_more"`
}

func newFeedWatchCmd(rt *runtime) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the feed and print new posts until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				interval = rt.app.Config.Feed.PollInterval
			}

			w := feed.NewWatcher(rt.app.API, interval, rt.app.Config.Feed.PageSize, rt.app.Log)

			var printErr error
			err := w.Run(cmd.Context(), func(posts []models.Post) {
				if printErr == nil {
					printErr = rt.out.posts(posts, "")
				}
			})
			return errors.Join(err, printErr)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default feed.poll_interval)")

	return cmd
}

func nonNil(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	return posts
}
