package boltdb

import (
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pilosa/feedgen"
	"github.com/pkg/errors"
)

var (
	logBucket  = []byte("feedLog")
	infoBucket = []byte("feedInfo")
)

// FeedLogs is a feedgen.FeedLogStore backed by a bolt database. Every sent
// feed is stored under its id with its header information.
type FeedLogs struct {
	Db *bolt.DB
}

// NewFeedLogs opens (creating if needed) the bolt database at filename.
func NewFeedLogs(filename string) (fl *FeedLogs, err error) {
	fl = &FeedLogs{}
	fl.Db, err = bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	fl.Db.MaxBatchDelay = 400 * time.Microsecond
	err = fl.Db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(logBucket); err != nil {
			return errors.Wrap(err, "creating feedLog bucket")
		}
		if _, err := tx.CreateBucketIfNotExists(infoBucket); err != nil {
			return errors.Wrap(err, "creating feedInfo bucket")
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return fl, nil
}

// Close syncs and closes the database.
func (fl *FeedLogs) Close() error {
	err := fl.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return fl.Db.Close()
}

// feedHeader is the stored form of feedgen.FeedInfo.
type feedHeader struct {
	DataSource string `json:"datasource"`
	Kind       string `json:"feedtype"`
	Records    int    `json:"records"`
	Size       int    `json:"size"`
}

// PutFeedLog implements feedgen.FeedLogStore. Storing a log for an id that
// already exists replaces it.
func (fl *FeedLogs) PutFeedLog(info feedgen.FeedInfo, log []byte) error {
	hdr, err := json.Marshal(feedHeader{
		DataSource: info.DataSource,
		Kind:       info.Kind.String(),
		Records:    info.Records,
		Size:       info.Size,
	})
	if err != nil {
		return errors.Wrap(err, "marshaling feed header")
	}
	err = fl.Db.Batch(func(tx *bolt.Tx) error {
		id := []byte(info.ID)
		if err := tx.Bucket(logBucket).Put(id, log); err != nil {
			return errors.Wrap(err, "inserting into feedLog bucket")
		}
		return errors.Wrap(tx.Bucket(infoBucket).Put(id, hdr), "inserting into feedInfo bucket")
	})
	return errors.Wrapf(err, "storing feed log %s", info.ID)
}

// FeedLog returns the stored log and header of feed id. ok is false if no
// such feed was stored.
func (fl *FeedLogs) FeedLog(id string) (info feedgen.FeedInfo, log []byte, ok bool, err error) {
	err = fl.Db.View(func(tx *bolt.Tx) error {
		hdr := tx.Bucket(infoBucket).Get([]byte(id))
		if hdr == nil {
			return nil
		}
		info, err = decodeInfo(id, hdr)
		if err != nil {
			return err
		}
		// bolt values are only valid for the life of the transaction.
		log = append([]byte{}, tx.Bucket(logBucket).Get([]byte(id))...)
		ok = true
		return nil
	})
	return info, log, ok, err
}

// Feeds lists the header of every stored feed, ordered by id.
func (fl *FeedLogs) Feeds() (infos []feedgen.FeedInfo, err error) {
	err = fl.Db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(infoBucket).ForEach(func(k, v []byte) error {
			info, err := decodeInfo(string(k), v)
			if err != nil {
				return err
			}
			infos = append(infos, info)
			return nil
		})
	})
	return infos, err
}

func decodeInfo(id string, hdr []byte) (feedgen.FeedInfo, error) {
	var h feedHeader
	if err := json.Unmarshal(hdr, &h); err != nil {
		return feedgen.FeedInfo{}, errors.Wrapf(err, "decoding header of %s", id)
	}
	kind, err := feedgen.ParseFeedKind(h.Kind)
	if err != nil {
		return feedgen.FeedInfo{}, errors.Wrapf(err, "decoding header of %s", id)
	}
	return feedgen.FeedInfo{
		ID:         id,
		DataSource: h.DataSource,
		Kind:       kind,
		Records:    h.Records,
		Size:       h.Size,
	}, nil
}
