package graphql_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/gqlflux/graphql"
)

func TestOperation_OperationName(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		opName     string
		want       string
	}{
		{
			name:       "simple",
			collection: "users",
			opName:     "signIn",
			want:       "UsersSignIn",
		},
		{
			name:       "name with spaces",
			collection: "posts",
			opName:     "add item",
			want:       "PostsAdditem",
		},
		{
			name:       "flat operation",
			collection: "",
			opName:     "uploadImage",
			want:       "UploadImage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := graphql.Query(tt.collection, tt.opName, nil, nil)
			assert.Equal(t, tt.want, op.OperationName())
		})
	}
}

func TestOperation_FieldName(t *testing.T) {
	op := graphql.Mutation("users", "Sign In", nil, nil)
	assert.Equal(t, "signIn", op.FieldName())
}

func TestOperation_Document(t *testing.T) {
	op := graphql.Mutation("users", "signIn",
		[]graphql.Variable{
			{Name: "username", Type: "String!", Value: "testuser"},
			{Name: "password", Type: "String!", Value: "secret"},
		},
		[]string{"token", "expires", "userId"},
	)

	want := strings.Join([]string{
		"mutation UsersSignIn($username: String!, $password: String!) {",
		"\tusers {",
		"\t\tsignIn(username: $username, password: $password) {",
		"\t\t\ttoken",
		"\t\t\texpires",
		"\t\t\tuserId",
		"\t\t}",
		"\t}",
		"}",
	}, "\n")

	assert.Equal(t, want, op.Document())
}

func TestOperation_Document_Deterministic(t *testing.T) {
	op := graphql.Query("groups", "listByUser",
		[]graphql.Variable{{Name: "userId", Type: "ID!", Value: "u-1"}},
		[]string{"id", "name"},
	)

	first := op.Document()
	second := op.Document()
	assert.Equal(t, first, second, "rendering must be byte-identical across calls")
}

func TestOperation_Document_DeclarationsMatchVariables(t *testing.T) {
	vars := []graphql.Variable{
		{Name: "b", Type: "Int", Value: 2},
		{Name: "a", Type: "String", Value: "x"},
		{Name: "c", Type: "Boolean", Value: true},
	}
	op := graphql.Query("events", "search", vars, []string{"id"})
	doc := op.Document()

	// Declarations appear in slice order, not sorted.
	idxB := strings.Index(doc, "$b: Int")
	idxA := strings.Index(doc, "$a: String")
	idxC := strings.Index(doc, "$c: Boolean")
	require.True(t, idxB >= 0 && idxA >= 0 && idxC >= 0)
	assert.Less(t, idxB, idxA)
	assert.Less(t, idxA, idxC)

	// Arguments are passed by reference to the declared variables.
	assert.Contains(t, doc, "search(b: $b, a: $a, c: $c)")

	values := op.VariableValues()
	assert.Len(t, values, len(vars))
	for _, v := range vars {
		assert.Equal(t, v.Value, values[v.Name])
	}
}

func TestOperation_Document_NoReturnFields(t *testing.T) {
	op := graphql.Mutation("messages", "markRead",
		[]graphql.Variable{{Name: "id", Type: "ID!", Value: "m-1"}}, nil)
	doc := op.Document()

	assert.Contains(t, doc, "markRead(id: $id)\n")
	assert.NotContains(t, doc, "markRead(id: $id) {")
}

func TestOperation_Document_FlatShape(t *testing.T) {
	op := graphql.Mutation("", "refreshSession",
		[]graphql.Variable{{Name: "token", Type: "String!", Value: "t"}},
		[]string{"token"},
	)
	doc := op.Document()

	assert.True(t, strings.HasPrefix(doc, "mutation RefreshSession($token: String!) {\n\trefreshSession"))
}

func TestOperation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		op      graphql.Operation
		wantErr string
	}{
		{
			name: "valid",
			op:   graphql.Query("users", "itemById", []graphql.Variable{{Name: "id", Type: "ID!"}}, []string{"id"}),
		},
		{
			name:    "empty name",
			op:      graphql.Query("users", "  ", nil, nil),
			wantErr: "operation name cannot be empty",
		},
		{
			name: "duplicate variable",
			op: graphql.Query("users", "search", []graphql.Variable{
				{Name: "id", Type: "ID!"},
				{Name: "id", Type: "ID!"},
			}, nil),
			wantErr: "duplicate variable name",
		},
		{
			name:    "bad kind",
			op:      graphql.Operation{Kind: "subscription", Name: "watch"},
			wantErr: "invalid operation kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
