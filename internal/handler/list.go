package handler

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/lessons-api/internal/repository"
    "github.com/iliyamo/lessons-api/internal/service"
)

const defaultPerPage = 10

// listMeta is the pagination block of list responses.
type listMeta struct {
    CurrentPage int `json:"current_page"`
    PerPage     int `json:"per_page"`
    Total       int `json:"total"`
    LastPage    int `json:"last_page"`
}

type listResponse[T any] struct {
    Data []T      `json:"data"`
    Meta listMeta `json:"meta"`
}

type itemResponse[T any] struct {
    Data T `json:"data"`
}

func newListResponse[T any](rows []T, total int, p repository.ListParams) listResponse[T] {
    last := 1
    if p.PerPage > 0 && total > 0 {
        last = (total + p.PerPage - 1) / p.PerPage
    }
    if rows == nil {
        rows = []T{}
    }
    return listResponse[T]{
        Data: rows,
        Meta: listMeta{CurrentPage: p.Page, PerPage: p.PerPage, Total: total, LastPage: last},
    }
}

// parseListParams reads sort, order, countOnPage and page from the query
// string.  sortable holds the accepted sort keys.
func parseListParams(c echo.Context, sortable map[string]string) (repository.ListParams, error) {
    p := repository.ListParams{Sort: "id", Order: "asc", PerPage: defaultPerPage, Page: 1}
    verr := &service.ValidationError{}

    if s := c.QueryParam("sort"); s != "" {
        if _, ok := sortable[s]; !ok {
            verr.Add("sort", "The selected sort is invalid.")
        }
        p.Sort = s
    }
    if o := c.QueryParam("order"); o != "" {
        if o != "asc" && o != "desc" {
            verr.Add("order", "The selected order is invalid.")
        }
        p.Order = o
    }
    positive := func(key, attr string, dst *int) {
        raw := c.QueryParam(key)
        if raw == "" {
            return
        }
        n, err := strconv.Atoi(raw)
        switch {
        case err != nil:
            verr.Add(key, "The "+attr+" must be an integer.")
        case n < 1:
            verr.Add(key, "The "+attr+" must be at least 1.")
        default:
            *dst = n
        }
    }
    positive("countOnPage", "count on page", &p.PerPage)
    positive("page", "page", &p.Page)

    if len(verr.Fields) > 0 {
        return p, verr
    }
    return p, nil
}

func parseID(c echo.Context) (uint64, error) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, service.ErrNotFound
    }
    return id, nil
}
