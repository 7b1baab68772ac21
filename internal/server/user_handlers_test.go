package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"celeste/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestRegisterHandler(t *testing.T) {
	t.Run("registers with a valid code", func(t *testing.T) {
		users := noopUserRepo()
		s := newTestServer(Deps{Users: users, Posts: noopPostRepo(), Comments: noopCommentRepo(), Mails: mailRepoAccepting("1234")})

		resp, env := doJSON(t, s, http.MethodPost, "/api/users/register", jsonBody(t, map[string]string{
			"username": "ada",
			"email":    "ada@example.com",
			"password": "long-enough-pw",
			"code":     "1234",
		}))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "Registered", env.Msg)

		var user models.User
		require.NoError(t, json.Unmarshal(env.Data, &user))
		assert.Equal(t, "ada", user.Username)
		assert.True(t, user.Status.IsActive)

		// The hash never leaves the server.
		assert.NotContains(t, string(env.Data), "passwordHash")
	})

	t.Run("wrong code is a 400", func(t *testing.T) {
		s := newTestServer(Deps{Users: noopUserRepo(), Posts: noopPostRepo(), Comments: noopCommentRepo(), Mails: mailRepoAccepting("1234")})

		resp, env := doJSON(t, s, http.MethodPost, "/api/users/register", jsonBody(t, map[string]string{
			"username": "ada",
			"email":    "ada@example.com",
			"password": "long-enough-pw",
			"code":     "0000",
		}))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid verification code", env.Msg)
	})

	t.Run("taken username is a 409", func(t *testing.T) {
		users := noopUserRepo()
		users.createFn = func(_ context.Context, _ *models.User) error {
			return models.NewAlreadyExistsError("username or email already taken")
		}
		s := newTestServer(Deps{Users: users, Posts: noopPostRepo(), Comments: noopCommentRepo(), Mails: mailRepoAccepting("1234")})

		resp, _ := doJSON(t, s, http.MethodPost, "/api/users/register", jsonBody(t, map[string]string{
			"username": "ada",
			"email":    "ada@example.com",
			"password": "long-enough-pw",
			"code":     "1234",
		}))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestFollowHandler(t *testing.T) {
	alice := bson.NewObjectID()
	bob := bson.NewObjectID()

	t.Run("follows", func(t *testing.T) {
		s := newTestServer(Deps{Users: noopUserRepo(), Posts: noopPostRepo(), Comments: noopCommentRepo(), Mails: noopMailRepo()})

		resp, env := doJSON(t, s, http.MethodPost, "/api/users/follow", jsonBody(t, map[string]string{
			"userId":   alice.Hex(),
			"targetId": bob.Hex(),
		}))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Followed", env.Msg)
	})

	t.Run("duplicate follow is a 409", func(t *testing.T) {
		users := noopUserRepo()
		users.followFn = func(_ context.Context, _, _ bson.ObjectID) (bool, error) { return false, nil }
		s := newTestServer(Deps{Users: users, Posts: noopPostRepo(), Comments: noopCommentRepo(), Mails: noopMailRepo()})

		resp, env := doJSON(t, s, http.MethodPost, "/api/users/follow", jsonBody(t, map[string]string{
			"userId":   alice.Hex(),
			"targetId": bob.Hex(),
		}))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "Already following this user", env.Msg)
	})

	t.Run("unfollow without an edge is a 409", func(t *testing.T) {
		users := noopUserRepo()
		users.unfollowFn = func(_ context.Context, _, _ bson.ObjectID) (bool, error) { return false, nil }
		s := newTestServer(Deps{Users: users, Posts: noopPostRepo(), Comments: noopCommentRepo(), Mails: noopMailRepo()})

		resp, env := doJSON(t, s, http.MethodDelete, "/api/users/follow", jsonBody(t, map[string]string{
			"userId":   alice.Hex(),
			"targetId": bob.Hex(),
		}))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "Not following this user", env.Msg)
	})

	t.Run("invalid target id is a 400", func(t *testing.T) {
		s := newTestServer(Deps{Users: noopUserRepo(), Posts: noopPostRepo(), Comments: noopCommentRepo(), Mails: noopMailRepo()})

		resp, _ := doJSON(t, s, http.MethodPost, "/api/users/follow", jsonBody(t, map[string]string{
			"userId":   alice.Hex(),
			"targetId": "bogus",
		}))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetUserHandler(t *testing.T) {
	t.Run("returns the user", func(t *testing.T) {
		id := bson.NewObjectID()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, got bson.ObjectID) (*models.User, error) {
			return &models.User{ID: got, Username: "ada"}, nil
		}
		s := newTestServer(Deps{Users: users, Posts: noopPostRepo(), Comments: noopCommentRepo(), Mails: noopMailRepo()})

		resp, env := doJSON(t, s, http.MethodGet, "/api/users/"+id.Hex(), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var user models.User
		require.NoError(t, json.Unmarshal(env.Data, &user))
		assert.Equal(t, "ada", user.Username)
	})

	t.Run("unknown user is a 404", func(t *testing.T) {
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id bson.ObjectID) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id.Hex())
		}
		s := newTestServer(Deps{Users: users, Posts: noopPostRepo(), Comments: noopCommentRepo(), Mails: noopMailRepo()})

		resp, _ := doJSON(t, s, http.MethodGet, "/api/users/"+bson.NewObjectID().Hex(), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGetFollowingHandler(t *testing.T) {
	id := bson.NewObjectID()
	friend := bson.NewObjectID()

	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, got bson.ObjectID) (*models.User, error) {
		return &models.User{ID: got, Following: []bson.ObjectID{friend}}, nil
	}
	users.getManyByIDsFn = func(_ context.Context, ids []bson.ObjectID) ([]models.User, error) {
		require.Equal(t, []bson.ObjectID{friend}, ids)
		return []models.User{{ID: friend, Username: "brin"}}, nil
	}
	s := newTestServer(Deps{Users: users, Posts: noopPostRepo(), Comments: noopCommentRepo(), Mails: noopMailRepo()})

	resp, env := doJSON(t, s, http.MethodGet, "/api/users/"+id.Hex()+"/following", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed []models.User
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "brin", listed[0].Username)
}

func TestLoginHandler(t *testing.T) {
	t.Run("unknown email is a 401", func(t *testing.T) {
		s := newTestServer(Deps{Users: noopUserRepo(), Posts: noopPostRepo(), Comments: noopCommentRepo(), Mails: noopMailRepo()})

		resp, env := doJSON(t, s, http.MethodPost, "/api/users/login", jsonBody(t, map[string]string{
			"email":    "ghost@example.com",
			"password": "whatever-pw",
		}))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid email or password", env.Msg)
	})
}
