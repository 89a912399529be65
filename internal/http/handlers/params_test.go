package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/yungbote/supportchat-backend/internal/pkg/errors"
)

func testContext(method, target, body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func TestQueryBeforeSeq(t *testing.T) {
	cases := []struct {
		target  string
		want    int64
		wantNil bool
		wantErr bool
	}{
		{target: "/x", wantNil: true},
		{target: "/x?before_seq=12", want: 12},
		{target: "/x?before=7", want: 7},
		{target: "/x?before_seq=3&before=9", want: 3},
		{target: "/x?before_seq=abc", wantErr: true},
	}
	for _, tc := range cases {
		got, err := queryBeforeSeq(testContext(http.MethodGet, tc.target, ""))
		if tc.wantErr {
			if !errors.Is(err, domainerrors.ErrValidation) {
				t.Fatalf("%s: want validation error, got=%v", tc.target, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.target, err)
		}
		if tc.wantNil {
			if got != nil {
				t.Fatalf("%s: want nil, got=%d", tc.target, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Fatalf("%s: want=%d got=%v", tc.target, tc.want, got)
		}
	}
}

func TestQueryLimitIgnoresGarbage(t *testing.T) {
	if got := queryLimit(testContext(http.MethodGet, "/x?limit=25", "")); got != 25 {
		t.Fatalf("want=25 got=%d", got)
	}
	if got := queryLimit(testContext(http.MethodGet, "/x?limit=lots", "")); got != 0 {
		t.Fatalf("want=0 got=%d", got)
	}
}

func TestBindOptionalJSON(t *testing.T) {
	var req requestAdminReq
	if err := bindOptionalJSON(testContext(http.MethodPost, "/x", ""), &req); err != nil {
		t.Fatalf("empty body: %v", err)
	}
	if err := bindOptionalJSON(testContext(http.MethodPost, "/x", `{"note":"hi"}`), &req); err != nil || req.Note != "hi" {
		t.Fatalf("note: err=%v note=%q", err, req.Note)
	}
	if err := bindOptionalJSON(testContext(http.MethodPost, "/x", `{"note":`), &req); !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("malformed body: want validation error, got=%v", err)
	}
}

func TestThreadIDParam(t *testing.T) {
	c := testContext(http.MethodGet, "/x", "")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	if _, err := threadIDParam(c); !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("want validation error, got=%v", err)
	}
}

func TestQueryAfterSeq(t *testing.T) {
	got, err := queryAfterSeq(testContext(http.MethodGet, "/x?after=4", ""))
	if err != nil || got == nil || *got != 4 {
		t.Fatalf("alias: got=%v err=%v", got, err)
	}
	if _, err := queryAfterSeq(testContext(http.MethodGet, "/x?after_seq=-", "")); !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("want validation error, got=%v", err)
	}
}

func TestPageLimit(t *testing.T) {
	cases := map[string]int{
		"/x":            defaultPageLimit,
		"/x?limit=10":   10,
		"/x?limit=5000": maxPageLimit,
	}
	for target, want := range cases {
		if got := pageLimit(testContext(http.MethodGet, target, "")); got != want {
			t.Fatalf("%s: want=%d got=%d", target, want, got)
		}
	}
}
