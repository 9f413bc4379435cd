package pantry

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/spoilsense/spoilsense/internal/ingredient"
)

const bucketName = "pantry"

// NameResolver is the piece of the ingredient resolver the pantry needs.
type NameResolver interface {
	Resolve(rawName string) ingredient.Match
}

// DB defines the interface for pantry persistence
type DB interface {
	// SaveItem saves an item to the database
	SaveItem(item *Item) error

	// GetItem retrieves an item by ID
	GetItem(id string) (*Item, error)

	// ListItems returns all items
	ListItems() ([]*Item, error)

	// DeleteItem removes an item from the database
	DeleteItem(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db       *bbolt.DB
	resolver NameResolver
}

// legacyItem is the pre-canonicalization record shape. Records in this
// shape are migrated on load: name becomes the display name, the canonical
// name is recomputed, and the stored expiration becomes the computed one.
type legacyItem struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Quantity       float64   `json:"quantity"`
	Unit           string    `json:"unit"`
	PurchaseDate   time.Time `json:"purchaseDate"`
	ExpirationDate time.Time `json:"expirationDate"`
}

// NewBoltDB creates a new BoltDB instance. The resolver is needed to
// recompute canonical names when legacy records are migrated.
func NewBoltDB(path string, resolver NameResolver) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db, resolver: resolver}, nil
}

// SaveItem saves an item to the database
func (b *BoltDB) SaveItem(item *Item) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshaling item: %w", err)
		}
		return bucket.Put([]byte(item.ID), data)
	})
}

// GetItem retrieves an item by ID
func (b *BoltDB) GetItem(id string) (*Item, error) {
	var item *Item
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		decoded, _ := b.decodeItem(data)
		if decoded == nil {
			return fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		item = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns all items. Legacy-shape records are migrated to the
// current shape and written back; records matching neither shape are
// dropped from the bucket.
func (b *BoltDB) ListItems() ([]*Item, error) {
	items := make([]*Item, 0)
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))

		var migrate []*Item
		var discard [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			item, migrated := b.decodeItem(v)
			if item == nil {
				key := make([]byte, len(k))
				copy(key, k)
				discard = append(discard, key)
				return nil
			}
			if migrated {
				migrate = append(migrate, item)
			}
			items = append(items, item)
			return nil
		})
		if err != nil {
			return err
		}

		for _, item := range migrate {
			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("marshaling migrated item: %w", err)
			}
			if err := bucket.Put([]byte(item.ID), data); err != nil {
				return err
			}
		}
		for _, key := range discard {
			if err := bucket.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteItem removes an item from the database
func (b *BoltDB) DeleteItem(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

// decodeItem tries the current shape first, then the legacy shape. It
// returns nil when the record matches neither. The second return reports
// whether a legacy migration happened.
func (b *BoltDB) decodeItem(data []byte) (*Item, bool) {
	var item Item
	if err := json.Unmarshal(data, &item); err == nil && item.CanonicalName != "" {
		return &item, false
	}

	var legacy legacyItem
	if err := json.Unmarshal(data, &legacy); err != nil || legacy.ID == "" || legacy.Name == "" {
		return nil, false
	}

	match := b.resolver.Resolve(legacy.Name)
	if match.CanonicalName == ingredient.Unknown {
		return nil, false
	}

	quantity := legacy.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	unit := legacy.Unit
	if unit == "" {
		unit = "item"
	}

	return &Item{
		ID:                     legacy.ID,
		CanonicalName:          match.CanonicalName,
		DisplayName:            legacy.Name,
		Quantity:               quantity,
		Unit:                   unit,
		PurchaseDate:           legacy.PurchaseDate,
		ComputedExpirationDate: legacy.ExpirationDate,
		Source:                 SourceManual,
		CreatedAt:              legacy.PurchaseDate,
		UpdatedAt:              legacy.PurchaseDate,
	}, true
}
