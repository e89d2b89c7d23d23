package emv

import "fmt"

// DataObject is one TLV-decoded data element retrieved from the card.
type DataObject struct {
	Tag  uint32
	Data []byte
}

// DataStore indexes the data objects read from the card by tag, plus the
// ordered list of records protected by static data authentication. The
// order of the protected records is semantically significant: it fixes
// the byte concatenation order of the signed static data message.
//
// The store is populated once during card-data ingestion and treated as
// immutable during verification.
type DataStore struct {
	objects    map[uint32]*DataObject
	sdaRecords []*DataObject
}

// NewDataStore creates an empty store.
func NewDataStore() *DataStore {
	return &DataStore{objects: make(map[uint32]*DataObject)}
}

// Put records a data object under its tag. A duplicate tag overwrites the
// previous object (last write wins).
func (s *DataStore) Put(tag uint32, data []byte) *DataObject {
	obj := &DataObject{Tag: tag, Data: data}
	s.objects[tag] = obj
	return obj
}

// AppendSDARecord adds a record to the SDA-protected list, in the order
// the Application File Locator designates.
func (s *DataStore) AppendSDARecord(obj *DataObject) {
	s.sdaRecords = append(s.sdaRecords, obj)
}

// Retrieve returns the object stored under tag, or nil when absent.
func (s *DataStore) Retrieve(tag uint32) *DataObject {
	return s.objects[tag]
}

// RetrieveInt interprets the tagged bytes as a big-endian unsigned
// integer.
func (s *DataStore) RetrieveInt(tag uint32) (int64, error) {
	obj := s.Retrieve(tag)
	if obj == nil {
		return 0, fmt.Errorf("emv: tag %X: %w", tag, ErrMissingData)
	}
	if len(obj.Data) == 0 || len(obj.Data) > 7 {
		return 0, fmt.Errorf("emv: tag %X holds %d bytes, not an integer", tag, len(obj.Data))
	}

	var v int64
	for _, b := range obj.Data {
		v = v<<8 | int64(b)
	}
	return v, nil
}

// SDARecords returns the protected records in card-designated order.
func (s *DataStore) SDARecords() []*DataObject {
	return s.sdaRecords
}
