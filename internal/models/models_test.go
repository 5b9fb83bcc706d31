package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestList_PlainArray(t *testing.T) {
	var l List[Comment]
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"body":"a"},{"id":2,"body":"b"}]`), &l))
	require.Len(t, l, 2)
	require.Equal(t, "b", l[1].Body)
}

func TestList_Paginated(t *testing.T) {
	var l List[FollowRelation]
	body := `{"count":3,"next":"http://x/?page=2","previous":null,"results":[{"id":7,"follower":{"id":1},"following":{"id":2}}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &l))
	require.Len(t, l, 1)
	require.EqualValues(t, 7, l[0].ID)
	require.EqualValues(t, 2, l[0].Following.ID)
}

func TestList_NullAndEmpty(t *testing.T) {
	var l List[Post]
	require.NoError(t, json.Unmarshal([]byte(`{"results":[]}`), &l))
	require.Empty(t, l)

	require.Error(t, json.Unmarshal([]byte(`"nope"`), &l))
}

func TestParseVisibilityAndReaction(t *testing.T) {
	v, err := ParseVisibility("")
	require.NoError(t, err)
	require.Equal(t, VisibilityPublic, v)

	v, err = ParseVisibility("friends")
	require.NoError(t, err)
	require.Equal(t, VisibilityFriends, v)

	_, err = ParseVisibility("everyone")
	require.Error(t, err)

	r, err := ParseReaction("haha")
	require.NoError(t, err)
	require.Equal(t, ReactionHaha, r)

	_, err = ParseReaction("meh")
	require.Error(t, err)
}

func TestPost_LikedFromUserReaction(t *testing.T) {
	var p Post
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"user_reaction":null}`), &p))
	require.False(t, p.Liked())

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"user_reaction":"love"}`), &p))
	require.True(t, p.Liked())
	require.Equal(t, ReactionLove, *p.UserReaction)
}
