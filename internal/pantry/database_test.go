package pantry

import (
	"encoding/json"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"

	"github.com/spoilsense/spoilsense/internal/ingredient"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath, ingredient.NewDefaultResolver())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newItem := func(id string) *Item {
		return &Item{
			ID:                     id,
			CanonicalName:          "milk",
			DisplayName:            "Whole Milk",
			Quantity:               1,
			Unit:                   "item",
			PurchaseDate:           time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			ComputedExpirationDate: time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC),
			Source:                 SourceManual,
			CreatedAt:              time.Now().UTC(),
			UpdatedAt:              time.Now().UTC(),
		}
	}

	Describe("SaveItem and GetItem", func() {
		It("round-trips an item", func() {
			item := newItem("test-id")
			Expect(db.SaveItem(item)).To(Succeed())

			got, err := db.GetItem("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.CanonicalName).To(Equal("milk"))
			Expect(got.DisplayName).To(Equal("Whole Milk"))
			Expect(got.ComputedExpirationDate.Equal(item.ComputedExpirationDate)).To(BeTrue())
		})

		It("round-trips an override expiration", func() {
			item := newItem("test-id")
			override := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
			item.OverrideExpirationDate = &override
			Expect(db.SaveItem(item)).To(Succeed())

			got, err := db.GetItem("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.OverrideExpirationDate).NotTo(BeNil())
			Expect(got.OverrideExpirationDate.Equal(override)).To(BeTrue())
		})

		It("returns a not-found error for a missing ID", func() {
			_, err := db.GetItem("missing")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("ListItems", func() {
		It("returns all saved items", func() {
			Expect(db.SaveItem(newItem("id1"))).To(Succeed())
			Expect(db.SaveItem(newItem("id2"))).To(Succeed())

			items, err := db.ListItems()
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
		})

		It("returns an empty slice for an empty bucket", func() {
			items, err := db.ListItems()
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(BeEmpty())
		})
	})

	Describe("DeleteItem", func() {
		It("removes the item", func() {
			Expect(db.SaveItem(newItem("id1"))).To(Succeed())
			Expect(db.DeleteItem("id1")).To(Succeed())

			_, err := db.GetItem("id1")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("legacy record migration", func() {
		// putRaw writes bytes straight into the bucket, bypassing the
		// current encoder, the way a legacy deployment would have
		putRaw := func(key string, value []byte) {
			err := db.db.Update(func(tx *bbolt.Tx) error {
				return tx.Bucket([]byte(bucketName)).Put([]byte(key), value)
			})
			Expect(err).NotTo(HaveOccurred())
		}

		getRaw := func(key string) []byte {
			var out []byte
			err := db.db.View(func(tx *bbolt.Tx) error {
				v := tx.Bucket([]byte(bucketName)).Get([]byte(key))
				if v != nil {
					out = make([]byte, len(v))
					copy(out, v)
				}
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			return out
		}

		When("a legacy-shape record is loaded", func() {
			BeforeEach(func() {
				legacy := map[string]any{
					"id":             "legacy-1",
					"name":           "Mlk",
					"quantity":       2,
					"unit":           "l",
					"purchaseDate":   "2024-01-01T00:00:00Z",
					"expirationDate": "2024-01-08T00:00:00Z",
				}
				data, err := json.Marshal(legacy)
				Expect(err).NotTo(HaveOccurred())
				putRaw("legacy-1", data)
			})

			It("migrates it to the current shape", func() {
				items, err := db.ListItems()
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(1))
				Expect(items[0].CanonicalName).To(Equal("milk"))
				Expect(items[0].DisplayName).To(Equal("Mlk"))
				Expect(items[0].Quantity).To(Equal(2.0))
				Expect(items[0].ComputedExpirationDate.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC))).To(BeTrue())
			})

			It("writes the migrated record back", func() {
				_, err := db.ListItems()
				Expect(err).NotTo(HaveOccurred())

				var stored Item
				Expect(json.Unmarshal(getRaw("legacy-1"), &stored)).To(Succeed())
				Expect(stored.CanonicalName).To(Equal("milk"))
			})

			It("serves the migrated record through GetItem too", func() {
				got, err := db.GetItem("legacy-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(got.CanonicalName).To(Equal("milk"))
			})
		})

		When("a legacy record has defaults missing", func() {
			BeforeEach(func() {
				putRaw("legacy-2", []byte(`{"id":"legacy-2","name":"eggs","quantity":0,"unit":""}`))
			})

			It("fills in quantity 1 and unit item", func() {
				items, err := db.ListItems()
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(1))
				Expect(items[0].Quantity).To(Equal(1.0))
				Expect(items[0].Unit).To(Equal("item"))
				Expect(items[0].CanonicalName).To(Equal("egg"))
			})
		})

		When("a record matches neither shape", func() {
			BeforeEach(func() {
				putRaw("junk-1", []byte(`{"unrelated":"blob"}`))
				putRaw("junk-2", []byte(`not json at all`))
			})

			It("discards it on load", func() {
				items, err := db.ListItems()
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(BeEmpty())
				Expect(getRaw("junk-1")).To(BeNil())
				Expect(getRaw("junk-2")).To(BeNil())
			})
		})
	})
})

var _ = Describe("LocalSessionStore", func() {
	var store *LocalSessionStore

	BeforeEach(func() {
		var err error
		store, err = NewLocalSessionStore(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips session data", func() {
		Expect(store.Save("sess-1", []byte(`{"lines":[]}`))).To(Succeed())
		data, err := store.Get("sess-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte(`{"lines":[]}`)))
	})

	It("deletes sessions", func() {
		Expect(store.Save("sess-1", []byte("x"))).To(Succeed())
		Expect(store.Delete("sess-1")).To(Succeed())
		_, err := store.Get("sess-1")
		Expect(err).To(HaveOccurred())
	})

	It("fails to delete a missing session", func() {
		Expect(store.Delete("missing")).NotTo(Succeed())
	})
})
