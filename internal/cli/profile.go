package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-social-client/internal/models"
	"github.com/pribylovaa/go-social-client/internal/profile"
	"github.com/pribylovaa/go-social-client/internal/toggle"
)

func newProfileCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "profile",
		Short:       "View profiles, follow users and edit your settings",
		Annotations: protected(),
	}

	cmd.AddCommand(
		newProfileShowCmd(rt),
		newProfileFollowCmd(rt),
		newProfileRelationsCmd(rt, "followers", "Show who follows a user",
			func(r models.FollowRelation) models.UserPublic { return r.Follower }),
		newProfileRelationsCmd(rt, "following", "Show whom a user follows",
			func(r models.FollowRelation) models.UserPublic { return r.Following }),
		newProfileUpdateCmd(rt),
	)

	return cmd
}

// profileView — вывод profile show в json.
type profileView struct {
	User       models.UserPublic `json:"user"`
	Posts      []models.Post     `json:"posts"`
	Followers  int               `json:"followers_loaded"`
	Following  int               `json:"following_loaded"`
	Own        bool              `json:"own"`
	Incomplete bool              `json:"incomplete"`
}

func newProfileShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show [ID|me]",
		Short: "Show a profile with its posts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := "me"
			if len(args) == 1 {
				id = args[0]
			}

			v, err := profile.Load(cmd.Context(), rt.app.API, id, rt.app.Log)
			if err != nil {
				return err
			}

			out := profileView{
				User:       v.User,
				Posts:      nonNil(v.Posts),
				Followers:  len(v.Followers),
				Following:  len(v.Following),
				Own:        v.IsOwn(rt.currentID(cmd.Context())),
				Incomplete: v.Incomplete,
			}

			return rt.out.emit(out, func(w io.Writer) {
				rt.out.writeUser(w, &out.User)
				if !out.Own {
					if out.User.IsFollowing {
						fmt.Fprintln(w, "You follow this user.")
					} else {
						fmt.Fprintln(w, "You do not follow this user.")
					}
				}
				fmt.Fprintln(w)
				if out.Incomplete {
					fmt.Fprintln(w, "Posts and connections could not be loaded.")
					return
				}
				rt.out.writePosts(w, out.Posts, "No posts yet.")
			})
		},
	}
}

// followView — вывод profile follow.
type followView struct {
	User      models.UserPublic `json:"user"`
	Following bool              `json:"following"`
	Followers int               `json:"followers_count"`
	Outcome   string            `json:"outcome"`
}

func newProfileFollowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "follow ID",
		Short: "Follow or unfollow a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseID(args[0]); err != nil {
				return err
			}

			v, err := profile.Load(cmd.Context(), rt.app.API, args[0], rt.app.Log)
			if err != nil {
				return err
			}

			res, err := v.ToggleFollow(cmd.Context(), rt.currentID(cmd.Context()))
			if err != nil && res != toggle.RolledBack {
				return err
			}

			s := v.FollowState()
			out := followView{User: v.User, Following: s.On, Followers: s.Count, Outcome: res.String()}
			if perr := rt.out.emit(out, func(w io.Writer) {
				verb := "Unfollowed"
				if out.Following {
					verb = "Following"
				}
				fmt.Fprintf(w, "%s @%s (%d followers)\n", verb, out.User.Username, out.Followers)
			}); perr != nil {
				return perr
			}

			return err
		},
	}
}

func newProfileRelationsCmd(rt *runtime, use, short string, pick func(models.FollowRelation) models.UserPublic) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [ID|me]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if len(args) == 1 && args[0] != "me" {
				var err error
				if id, err = parseID(args[0]); err != nil {
					return err
				}
			} else {
				u, err := rt.app.CurrentUser(cmd.Context())
				if err != nil {
					return err
				}
				id = u.ID
			}

			var (
				list []models.FollowRelation
				err  error
			)
			if use == "followers" {
				list, err = rt.app.API.Followers(cmd.Context(), id)
			} else {
				list, err = rt.app.API.Following(cmd.Context(), id)
			}
			if err != nil {
				return err
			}

			return rt.out.relations(list, pick)
		},
	}
}

func newProfileUpdateCmd(rt *runtime) *cobra.Command {
	var (
		username, bio, website, location string
		s                                profile.Settings
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Edit your profile settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("username") {
				s.Username = &username
			}
			if flags.Changed("bio") {
				s.Bio = &bio
			}
			if flags.Changed("website") {
				s.Website = &website
			}
			if flags.Changed("location") {
				s.Location = &location
			}

			u, err := profile.UpdateSettings(cmd.Context(), rt.app.API, rt.app.Session.Snapshot().User, s)
			if err != nil {
				return err
			}
			rt.app.Session.SetUser(u)

			return rt.out.user(u)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "new user name")
	cmd.Flags().StringVar(&bio, "bio", "", "about you")
	cmd.Flags().StringVar(&website, "website", "", "website URL")
	cmd.Flags().StringVar(&location, "location", "", "location")
	cmd.Flags().StringVar(&s.AvatarPath, "avatar", "", "avatar image file")
	cmd.Flags().StringVar(&s.CoverPath, "cover", "", "cover image file")

	return cmd
}

// currentID — ID вошедшего пользователя или 0, если его не удалось узнать.
func (rt *runtime) currentID(ctx context.Context) int64 {
	u, err := rt.app.CurrentUser(ctx)
	if err != nil {
		return 0
	}
	return u.ID
}
