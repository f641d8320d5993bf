package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/service"
)

func newCasesApp(t *testing.T) (*fiber.App, *service.CaseService) {
	t.Helper()
	store := repository.NewMemoryStore()
	auditService := service.NewAuditService(store.Events(), nil)
	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:   store.Cases(),
		NoteRepo:   store.Notes(),
		EventRepo:  store.Events(),
		Audit:      auditService,
		UnitOfWork: repository.NewMemoryUnitOfWork(),
	})

	app := fiber.New()
	handler := NewCasesHandler(caseService)
	app.Get("/api/cases", handler.ListCases)
	return app, caseService
}

func listCases(t *testing.T, app *fiber.App, query string) []json.RawMessage {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/api/cases"+query, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Data
}

func TestListCasesCapsPageSize(t *testing.T) {
	app, caseService := newCasesApp(t)
	for i := 0; i < maxPageSize+10; i++ {
		_, err := caseService.CreateCase(context.Background(), service.CaseCreateInput{
			Title: fmt.Sprintf("Case %03d", i),
		})
		require.NoError(t, err)
	}

	assert.Len(t, listCases(t, app, "?page_size=10000"), maxPageSize)
	assert.Len(t, listCases(t, app, ""), defaultPageSize)
	assert.Len(t, listCases(t, app, "?page_size=5"), 5)
}
