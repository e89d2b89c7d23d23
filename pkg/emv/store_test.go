package emv

import (
	"bytes"
	"errors"
	"testing"
)

func TestStoreRetrieve(t *testing.T) {
	store := NewDataStore()
	store.Put(TagPAN, []byte{0x12, 0x34})

	obj := store.Retrieve(TagPAN)
	if obj == nil {
		t.Fatal("stored object not retrievable")
	}
	if !bytes.Equal(obj.Data, []byte{0x12, 0x34}) {
		t.Errorf("data = %X", obj.Data)
	}
	if store.Retrieve(TagAIP) != nil {
		t.Error("absent tag should retrieve nil")
	}
}

func TestStoreLastWriteWins(t *testing.T) {
	store := NewDataStore()
	store.Put(TagPAN, []byte{0x01})
	store.Put(TagPAN, []byte{0x02})

	if got := store.Retrieve(TagPAN).Data; !bytes.Equal(got, []byte{0x02}) {
		t.Errorf("data = %X, expected the last written value", got)
	}
}

func TestRetrieveInt(t *testing.T) {
	store := NewDataStore()
	store.Put(TagCAPublicKeyIndex, []byte{0x07})
	store.Put(TagAIP, []byte{0x5C, 0x00})
	store.Put(TagAFL, make([]byte, 8))

	if v, err := store.RetrieveInt(TagCAPublicKeyIndex); err != nil || v != 7 {
		t.Errorf("RetrieveInt = %d, %v; expected 7", v, err)
	}
	if v, err := store.RetrieveInt(TagAIP); err != nil || v != 0x5C00 {
		t.Errorf("RetrieveInt = %#X, %v; expected 5C00", v, err)
	}

	if _, err := store.RetrieveInt(TagPAN); !errors.Is(err, ErrMissingData) {
		t.Errorf("absent tag: expected ErrMissingData, got %v", err)
	}
	if _, err := store.RetrieveInt(TagAFL); err == nil {
		t.Error("8 byte value should not convert to an integer")
	}
}

func TestSDARecordOrderPreserved(t *testing.T) {
	store := NewDataStore()
	store.AppendSDARecord(&DataObject{Tag: TagRecordTemplate, Data: []byte{0x01}})
	store.AppendSDARecord(&DataObject{Tag: TagRecordTemplate, Data: []byte{0x02}})

	records := store.SDARecords()
	if len(records) != 2 || records[0].Data[0] != 0x01 || records[1].Data[0] != 0x02 {
		t.Errorf("records out of order: %v", records)
	}
}
