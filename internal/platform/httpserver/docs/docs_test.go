package docs

import (
	"encoding/json"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerDocListsPollRoutes(t *testing.T) {
	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	assert.Equal(t, "livepoll API", doc.Info.Title)
	assert.Contains(t, doc.Paths["/polls/{poll_id}"], "get")
	assert.Contains(t, doc.Paths["/polls/{poll_id}/votes"], "post")
	assert.Contains(t, doc.Paths["/polls/{poll_id}/results"], "get")
}

// The handlers' godoc annotations are the source docs.go is generated from;
// every annotated route must be present with the same summary.
func TestSwaggerDocMatchesHandlerAnnotations(t *testing.T) {
	path := filepath.Join("..", "..", "..", "..", "contexts", "polling", "vote-tally-engine", "adapters", "http", "handler.go")
	file, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ParseComments)
	require.NoError(t, err)

	var doc struct {
		Paths map[string]map[string]struct {
			Summary string `json:"summary"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	routes := 0
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Doc == nil {
			continue
		}
		var summary, route, method string
		for _, line := range fn.Doc.List {
			text := strings.TrimSpace(strings.TrimPrefix(line.Text, "//"))
			switch {
			case strings.HasPrefix(text, "@Summary "):
				summary = strings.TrimSpace(strings.TrimPrefix(text, "@Summary "))
			case strings.HasPrefix(text, "@Router "):
				fields := strings.Fields(strings.TrimPrefix(text, "@Router "))
				require.Len(t, fields, 2, fn.Name.Name)
				route = fields[0]
				method = strings.Trim(fields[1], "[]")
			}
		}
		if route == "" {
			continue
		}
		routes++
		operations, ok := doc.Paths[route]
		require.True(t, ok, "route %s missing from docs", route)
		operation, ok := operations[method]
		require.True(t, ok, "%s %s missing from docs", method, route)
		assert.Equal(t, summary, operation.Summary, fn.Name.Name)
	}
	assert.Equal(t, 3, routes)
	assert.Len(t, doc.Paths, routes)
}
