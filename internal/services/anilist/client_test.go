package anilist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testClient(server *httptest.Server) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client := NewClient(5*time.Second, logger)
	client.endpoint = server.URL
	return client
}

func TestSearchAnime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Variables["search"] != "Frieren" {
			t.Errorf("unexpected search variable: %v", req.Variables["search"])
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"Media": map[string]interface{}{
					"id": 154587,
					"title": map[string]interface{}{
						"romaji":  "Sousou no Frieren",
						"english": "Frieren: Beyond Journey's End",
					},
					"nextAiringEpisode": map[string]interface{}{
						"episode":  12,
						"airingAt": 1700229600,
					},
				},
			},
		})
	}))
	defer server.Close()

	anime, err := testClient(server).SearchAnime(context.Background(), "Frieren")
	if err != nil {
		t.Fatalf("SearchAnime: %v", err)
	}

	if anime.ID != 154587 {
		t.Errorf("unexpected ID %d", anime.ID)
	}
	if anime.TitleRomaji != "Sousou no Frieren" {
		t.Errorf("unexpected romaji title %q", anime.TitleRomaji)
	}
	if anime.NextAiringEpisode != 12 {
		t.Errorf("unexpected next episode %d", anime.NextAiringEpisode)
	}
	if anime.NextAirDate.IsZero() {
		t.Error("expected next air date to be set")
	}
}

func TestSearchAnimeNoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"Media": nil},
		})
	}))
	defer server.Close()

	if _, err := testClient(server).SearchAnime(context.Background(), "does not exist"); err == nil {
		t.Fatal("expected error when no entry matches")
	}
}

func TestSearchAnimeGraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{{"message": "rate limited"}},
		})
	}))
	defer server.Close()

	if _, err := testClient(server).SearchAnime(context.Background(), "Frieren"); err == nil {
		t.Fatal("expected error on GraphQL errors")
	}
}
