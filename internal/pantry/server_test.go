package pantry

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/spoilsense/spoilsense/internal/ingredient"
	"github.com/spoilsense/spoilsense/internal/parsing"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		sessions    *mockSessions
		scanner     *mockScanner
		adv         *mockAdvisor
		timeSrc     *mockTimeSource
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	newService := func() *Service {
		resolver := ingredient.NewDefaultResolver()
		return NewServiceWithDeps(
			db, scanner, parsing.NewParser(resolver), resolver,
			ingredient.NewDefaultShelfLifeTable(), adv, sessions,
			&mockIDGenerator{ids: []string{"id-1", "id-2", "id-3"}}, timeSrc,
		)
	}

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		sessions = newMockSessions()
		scanner = newMockScanner()
		adv = &mockAdvisor{}
		timeSrc = &mockTimeSource{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
		auth = BasicAuth{}
		service = newService()
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	postJSON := func(path string, body any) *http.Response {
		payload, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.Post(ghttpServer.URL()+path, "application/json", bytes.NewReader(payload))
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decodeBody := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, v)).To(Succeed())
	}

	Describe("POST /api/receipts/scan", func() {
		uploadReceipt := func(filename string, data []byte) *http.Response {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile("file", filename)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			resp, err := http.Post(ghttpServer.URL()+"/api/receipts/scan", writer.FormDataContentType(), &buf)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("returns the parsed reviewable lines", func() {
			resp := uploadReceipt("receipt.jpg", []byte("fake image"))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result ScanResult
			decodeBody(resp, &result)
			Expect(result.SessionID).To(Equal("id-1"))
			Expect(result.Lines).To(HaveLen(1))
			Expect(result.Lines[0].CanonicalName).To(Equal("banana"))
		})

		It("returns 400 when no file is attached", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/receipts/scan", "multipart/form-data; boundary=x", strings.NewReader("--x--"))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})
	})

	Describe("POST /api/receipts/commit", func() {
		It("creates items from reviewed lines", func() {
			sessions.sessions["sess-1"] = []byte("{}")
			resp := postJSON("/api/receipts/commit", commitRequest{
				SessionID: "sess-1",
				Lines: []parsing.Line{
					{CanonicalName: "banana", DisplayName: "banana", Quantity: 2, Unit: "item", Confidence: 0.95},
				},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var items []*Item
			decodeBody(resp, &items)
			Expect(items).To(HaveLen(1))
			Expect(items[0].Source).To(Equal(SourceReceipt))
			Expect(sessions.sessions).NotTo(HaveKey("sess-1"))
		})

		It("rejects an empty commit", func() {
			resp := postJSON("/api/receipts/commit", commitRequest{})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})
	})

	Describe("DELETE /api/receipts/sessions/{id}", func() {
		It("abandons the session", func() {
			sessions.sessions["sess-1"] = []byte("{}")
			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/receipts/sessions/sess-1", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(sessions.sessions).To(BeEmpty())
			resp.Body.Close()
		})
	})

	Describe("POST /api/pantry", func() {
		It("creates a manual item", func() {
			resp := postJSON("/api/pantry", addItemRequest{Name: "mlk", Quantity: 1})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var item Item
			decodeBody(resp, &item)
			Expect(item.CanonicalName).To(Equal("milk"))
			Expect(item.Source).To(Equal(SourceManual))
		})

		It("returns 400 for a non-positive quantity", func() {
			resp := postJSON("/api/pantry", addItemRequest{Name: "milk", Quantity: 0})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})

		It("returns 400 for an unparseable override date", func() {
			resp := postJSON("/api/pantry", addItemRequest{
				Name: "milk", Quantity: 1, OverrideExpirationDate: "whenever",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})

		It("honors an explicit purchase date", func() {
			resp := postJSON("/api/pantry", addItemRequest{
				Name: "chicken", Quantity: 1, PurchaseDate: "2024-01-01",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var item Item
			decodeBody(resp, &item)
			Expect(item.ComputedExpirationDate.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))).To(BeTrue())
		})
	})

	Describe("GET /api/pantry", func() {
		It("returns all items", func() {
			db.items["id1"] = &Item{ID: "id1", CanonicalName: "milk"}
			db.order = append(db.order, "id1")

			resp, err := http.Get(ghttpServer.URL() + "/api/pantry")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

			var items []*Item
			decodeBody(resp, &items)
			Expect(items).To(HaveLen(1))
		})
	})

	Describe("GET /api/pantry/{id}", func() {
		It("returns the item", func() {
			db.items["id1"] = &Item{ID: "id1", CanonicalName: "milk"}

			resp, err := http.Get(ghttpServer.URL() + "/api/pantry/id1")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("returns 404 for a missing item", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/pantry/missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})
	})

	Describe("PATCH /api/pantry/{id}", func() {
		BeforeEach(func() {
			db.items["id1"] = &Item{
				ID: "id1", CanonicalName: "milk", DisplayName: "milk",
				Quantity: 1, Unit: "item",
			}
		})

		patchItem := func(id string, body string) *http.Response {
			req, err := http.NewRequest(http.MethodPatch, ghttpServer.URL()+"/api/pantry/"+id, strings.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("applies a partial edit without touching the canonical name", func() {
			resp := patchItem("id1", `{"display_name": "Oat Milk"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var item Item
			decodeBody(resp, &item)
			Expect(item.DisplayName).To(Equal("Oat Milk"))
			Expect(item.CanonicalName).To(Equal("milk"))
		})

		It("returns 400 for a bad override", func() {
			resp := patchItem("id1", `{"override_expiration_date": "garbage"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})

		It("returns 404 for a missing item", func() {
			resp := patchItem("missing", `{"quantity": 2}`)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})
	})

	Describe("DELETE /api/pantry/{id}", func() {
		It("deletes the item", func() {
			db.items["id1"] = &Item{ID: "id1", CanonicalName: "milk"}
			db.order = append(db.order, "id1")

			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/pantry/id1", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.items).To(BeEmpty())
			resp.Body.Close()
		})
	})

	Describe("GET /api/pantry/ranked", func() {
		BeforeEach(func() {
			add := func(id string, days int) {
				db.items[id] = &Item{
					ID: id, CanonicalName: id, DisplayName: id,
					Quantity: 1, Unit: "item",
					ComputedExpirationDate: timeSrc.now.AddDate(0, 0, days),
				}
				db.order = append(db.order, id)
			}
			add("overdue", -1)
			add("today", 0)
			add("later", 10)
		})

		It("returns the urgency-ordered projection", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/pantry/ranked")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var ranked []RankedIngredient
			decodeBody(resp, &ranked)
			Expect(ranked).To(HaveLen(3))
			Expect(ranked[0].CanonicalName).To(Equal("overdue"))
		})

		It("serializes the collaborator contract field names", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/pantry/ranked?limit=1")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring(`"canonicalName"`))
			Expect(string(body)).To(ContainSubstring(`"daysUntilExpiration"`))
			Expect(string(body)).To(ContainSubstring(`"urgencyScore"`))
		})

		It("honors the limit parameter", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/pantry/ranked?limit=2")
			Expect(err).NotTo(HaveOccurred())

			var ranked []RankedIngredient
			decodeBody(resp, &ranked)
			Expect(ranked).To(HaveLen(2))
		})

		It("rejects a malformed limit", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/pantry/ranked?limit=lots")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})
	})

	Describe("POST /api/shelflife", func() {
		It("merges external answers with the built-in table", func() {
			adv.shelfLives = map[string]float64{"milk": 5}
			resp := postJSON("/api/shelflife", []ShelfLifeRequest{{Name: "mlk"}, {Name: "garlic"}})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result map[string]int
			decodeBody(resp, &result)
			Expect(result).To(HaveKeyWithValue("milk", 5))
			Expect(result).To(HaveKeyWithValue("garlic", 45))
		})
	})

	Describe("POST /api/recipes", func() {
		It("returns the advisor's suggestions", func() {
			adv.recipes = []Recipe{{Name: "Banana Bread"}}
			resp := postJSON("/api/recipes", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var recipes []Recipe
			decodeBody(resp, &recipes)
			Expect(recipes).To(HaveLen(1))
		})

		It("returns 502 when the advisor fails", func() {
			adv.recipesErr = errors.New("quota exceeded")
			resp := postJSON("/api/recipes", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
			resp.Body.Close()
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			setupServer()
		})

		It("rejects requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/pantry")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			resp.Body.Close()
		})

		It("accepts valid credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/pantry", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:pass")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("rejects wrong credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/pantry", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:wrong")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			resp.Body.Close()
		})
	})
})
