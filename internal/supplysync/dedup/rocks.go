package dedup

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tecbot/gorocksdb"
)

const rocksBucketSec = 3600

var metaSweptKey = []byte("meta:last_swept_bucket")

// Rocks is a persistent hot cache backed by RocksDB, for deployments
// where the trailing event window is long enough that restarting the
// process would otherwise send every cached key back to Postgres.
// Entries are keyed by sha256 of the dedup key and indexed by expiry
// bucket so eviction is an incremental prefix scan, not a full sweep.
//
// All failures degrade to a cache miss; correctness stays with the
// record store.
type Rocks struct {
	db *gorocksdb.DB
	ro *gorocksdb.ReadOptions
	wo *gorocksdb.WriteOptions

	ttl int64
	now func() time.Time

	lastSwept int64
}

func OpenRocks(path string, ttl time.Duration) (*Rocks, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)

	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		return nil, err
	}

	c := &Rocks{
		db:  db,
		ro:  gorocksdb.NewDefaultReadOptions(),
		wo:  gorocksdb.NewDefaultWriteOptions(),
		ttl: int64(ttl / time.Second),
		now: time.Now,
	}
	if err := c.loadLastSwept(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Rocks) Close() {
	if c.ro != nil {
		c.ro.Destroy()
	}
	if c.wo != nil {
		c.wo.Destroy()
	}
	if c.db != nil {
		c.db.Close()
	}
}

func (c *Rocks) Seen(key string) bool {
	now := c.now().Unix()
	val, err := c.db.Get(c.ro, mainKey(hashKey(key)))
	if err != nil {
		log.Warn().Err(err).Msg("rocks dedup read failed, treating as miss")
		return false
	}
	defer val.Free()
	if !val.Exists() {
		return false
	}
	return i64(val.Data()) >= now
}

func (c *Rocks) Add(key string) {
	now := c.now().Unix()
	expiry := now + c.ttl
	h := hashKey(key)

	wb := gorocksdb.NewWriteBatch()
	defer wb.Destroy()
	wb.Put(mainKey(h), i64Bytes(expiry))
	wb.Put(idxKey(expiry/rocksBucketSec, h), i64Bytes(expiry))

	if err := c.db.Write(c.wo, wb); err != nil {
		log.Warn().Err(err).Msg("rocks dedup write failed")
		return
	}
	c.sweep(now)
}

// sweep deletes buckets strictly older than the current one, at most a
// few per call so a long-idle cache doesn't stall a cycle.
func (c *Rocks) sweep(now int64) {
	target := now/rocksBucketSec - 1
	const maxBucketsPerSweep = 4
	for b, n := c.lastSwept+1, 0; b <= target && n < maxBucketsPerSweep; b, n = b+1, n+1 {
		if err := c.dropBucket(b); err != nil {
			log.Warn().Err(err).Int64("bucket", b).Msg("rocks dedup sweep failed")
			return
		}
		c.lastSwept = b
		if err := c.db.Put(c.wo, metaSweptKey, i64Bytes(b)); err != nil {
			log.Warn().Err(err).Msg("rocks dedup sweep meta write failed")
			return
		}
	}
}

func (c *Rocks) dropBucket(bucket int64) error {
	prefix := idxPrefix(bucket)
	it := c.db.NewIterator(c.ro)
	defer it.Close()

	wb := gorocksdb.NewWriteBatch()
	defer wb.Destroy()

	for it.Seek(prefix); it.Valid(); it.Next() {
		k := it.Key()
		if !prefixed(k.Data(), prefix) {
			k.Free()
			break
		}
		v := it.Value()
		expIdx := i64(v.Data())

		wb.Delete(k.Data())

		if h, ok := idxKeyHash(k.Data()); ok {
			mk := mainKey(h)
			mv, err := c.db.Get(c.ro, mk)
			if err != nil {
				k.Free()
				v.Free()
				return err
			}
			// only drop the main entry if it wasn't re-added with a
			// newer expiry since this bucket was written
			if mv.Exists() && i64(mv.Data()) == expIdx {
				wb.Delete(mk)
			}
			mv.Free()
		}
		k.Free()
		v.Free()
	}
	if err := it.Err(); err != nil {
		return err
	}
	if wb.Count() > 0 {
		return c.db.Write(c.wo, wb)
	}
	return nil
}

func (c *Rocks) loadLastSwept() error {
	val, err := c.db.Get(c.ro, metaSweptKey)
	if err != nil {
		return err
	}
	defer val.Free()
	if !val.Exists() {
		c.lastSwept = c.now().Unix()/rocksBucketSec - 1
		return nil
	}
	c.lastSwept = i64(val.Data())
	return nil
}

// ---- key layout ----

func hashKey(key string) [32]byte { return sha256.Sum256([]byte(key)) }

func mainKey(h [32]byte) []byte {
	k := make([]byte, 0, 3+32)
	k = append(k, 'p', 'd', ':')
	return append(k, h[:]...)
}

func idxPrefix(bucket int64) []byte {
	k := make([]byte, 0, 4+8)
	k = append(k, 'p', 'd', 'x', ':')
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(bucket))
	return append(k, b[:]...)
}

func idxKey(bucket int64, h [32]byte) []byte {
	return append(idxPrefix(bucket), h[:]...)
}

func idxKeyHash(k []byte) ([32]byte, bool) {
	var h [32]byte
	if len(k) < 4+8+32 {
		return h, false
	}
	copy(h[:], k[len(k)-32:])
	return h, true
}

func prefixed(b, p []byte) bool {
	if len(b) < len(p) {
		return false
	}
	for i := range p {
		if b[i] != p[i] {
			return false
		}
	}
	return true
}

func i64Bytes(x int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(x))
	return b[:]
}

func i64(b []byte) int64 {
	if len(b) < 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b[:8]))
}
