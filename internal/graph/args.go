package graph

import (
	"github.com/google/uuid"

	"github.com/hanpama/usergraph/internal/store"
)

// uuidArg reads a required UUID argument.
func uuidArg(args map[string]any, name string) (string, error) {
	s, _ := args[name].(string)
	return parseUUID(name, s)
}

func parseUUID(name, s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", badInput("%s: invalid UUID %q", name, s)
	}
	return id.String(), nil
}

func inputArg(args map[string]any, name string) map[string]any {
	in, _ := args[name].(map[string]any)
	return in
}

func optional[T any](in map[string]any, key string) *T {
	v, ok := in[key].(T)
	if !ok {
		return nil
	}
	return &v
}

func required[T any](in map[string]any, key string) T {
	v, _ := in[key].(T)
	return v
}

func userInput(in map[string]any) store.UserInput {
	return store.UserInput{
		Name:    required[string](in, "name"),
		Balance: required[float64](in, "balance"),
	}
}

func userPatch(in map[string]any) store.UserPatch {
	return store.UserPatch{
		Name:    optional[string](in, "name"),
		Balance: optional[float64](in, "balance"),
	}
}

func postInput(in map[string]any) (store.PostInput, error) {
	author, err := parseUUID("authorId", required[string](in, "authorId"))
	if err != nil {
		return store.PostInput{}, err
	}
	return store.PostInput{
		Title:    required[string](in, "title"),
		Content:  required[string](in, "content"),
		AuthorID: author,
	}, nil
}

func postPatch(in map[string]any) (store.PostPatch, error) {
	patch := store.PostPatch{
		Title:   optional[string](in, "title"),
		Content: optional[string](in, "content"),
	}
	if author := optional[string](in, "authorId"); author != nil {
		id, err := parseUUID("authorId", *author)
		if err != nil {
			return store.PostPatch{}, err
		}
		patch.AuthorID = &id
	}
	return patch, nil
}

func profileInput(in map[string]any) (store.ProfileInput, error) {
	user, err := parseUUID("userId", required[string](in, "userId"))
	if err != nil {
		return store.ProfileInput{}, err
	}
	return store.ProfileInput{
		IsMale:       required[bool](in, "isMale"),
		YearOfBirth:  required[int](in, "yearOfBirth"),
		MemberTypeID: required[string](in, "memberTypeId"),
		UserID:       user,
	}, nil
}

func profilePatch(in map[string]any) store.ProfilePatch {
	return store.ProfilePatch{
		IsMale:       optional[bool](in, "isMale"),
		YearOfBirth:  optional[int](in, "yearOfBirth"),
		MemberTypeID: optional[string](in, "memberTypeId"),
	}
}
