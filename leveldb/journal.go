// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package leveldb

import (
	"os"

	"github.com/pilosa/feedgen"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var _ feedgen.Journal = &Journal{}

// Journal maps document ids to the id of the last feed which carried them.
type Journal struct {
	dirname string
	db      *leveldb.DB
}

// NewJournal opens (creating if needed) a Journal stored in dirname.
func NewJournal(dirname string) (*Journal, error) {
	err := os.MkdirAll(dirname, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	j := &Journal{dirname: dirname}
	j.db, err = leveldb.OpenFile(dirname+"/journal", &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname+"/journal")
	}
	return j, nil
}

// Record implements feedgen.Journal. All ids are written in one batch.
func (j *Journal) Record(docIDs []string, feedID string) error {
	batch := new(leveldb.Batch)
	fid := []byte(feedID)
	for _, id := range docIDs {
		batch.Put([]byte(id), fid)
	}
	err := j.db.Write(batch, &opt.WriteOptions{Sync: true})
	return errors.Wrapf(err, "writing %d journal entries for %s", len(docIDs), feedID)
}

// Lookup returns the id of the last feed which carried docID.
func (j *Journal) Lookup(docID string) (feedID string, ok bool, err error) {
	data, err := j.db.Get([]byte(docID), nil)
	if err == leveldb.ErrNotFound {
		return "", false, nil
	} else if err != nil {
		return "", false, errors.Wrapf(err, "fetching %s", docID)
	}
	return string(data), true, nil
}

// Forget removes docID from the journal.
func (j *Journal) Forget(docID string) error {
	return errors.Wrapf(j.db.Delete([]byte(docID), nil), "deleting %s", docID)
}

// Close closes the underlying leveldb.
func (j *Journal) Close() error {
	return errors.Wrap(j.db.Close(), "closing journal")
}
