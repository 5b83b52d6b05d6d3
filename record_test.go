package facs

import (
	"bytes"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord_RoundTrip(t *testing.T) {
	assert := assert.New(t)

	res := NewAnalyzer().AnalyzeFrame(mustLandmarks(t, happyPoints()))
	rec := NewResultRecord("session-1", 7, res)

	data, err := rec.MarshalBinary()
	assert.NoError(err)
	assert.NotEmpty(data)

	var back ResultRecord
	assert.NoError(back.UnmarshalBinary(data))

	assert.Equal(RecordVersion, back.Version)
	assert.Equal("session-1", back.Session)
	assert.Equal(uint64(7), back.FrameID)
	assert.True(back.Valid)
	assert.Equal("AU6C + AU12D", back.FACSCode)
	assert.Equal("happiness", back.Dominant)
	assert.InDelta(res.Valence, back.Valence, 1e-9)
	assert.InDelta(res.Arousal, back.Arousal, 1e-9)
	assert.WithinDuration(res.Timestamp, back.Timestamp, time.Microsecond)

	assert.Len(back.AUs, len(res.AUs))
	assert.Len(back.Emotions, len(res.Emotions))
}

func TestRecord_OrdersUnitsAscending(t *testing.T) {
	res := NewAnalyzer().AnalyzeFrame(mustLandmarks(t, surprisePoints()))
	rec := NewResultRecord("s", 1, res)

	sorted := sort.SliceIsSorted(rec.AUs, func(i, j int) bool {
		return rec.AUs[i].AU < rec.AUs[j].AU
	})
	assert.True(t, sorted, "record units out of order")
}

func TestRecord_DeterministicEncoding(t *testing.T) {
	res := NewAnalyzer().AnalyzeFrame(mustLandmarks(t, smirkPoints()))
	rec := NewResultRecord("s", 3, res)

	first, err := rec.MarshalBinary()
	assert.NoError(t, err)
	second, err := rec.MarshalBinary()
	assert.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "repeated encodes differ")
}

func TestRecord_CarriesIntensityGrades(t *testing.T) {
	assert := assert.New(t)

	res := NewAnalyzer().AnalyzeFrame(mustLandmarks(t, happyPoints()))
	rec := NewResultRecord("s", 1, res)

	var au12 *AURecord
	for i := range rec.AUs {
		if rec.AUs[i].AU == 12 {
			au12 = &rec.AUs[i]
		}
	}
	if au12 == nil {
		t.Fatal("AU12 missing from the record")
	}
	assert.True(au12.Detected)
	assert.Equal("D", au12.Label)
	assert.Equal(int(Severe), au12.Intensity)
	assert.InDelta(4.408, au12.Value, 1e-3)
}

func TestRecord_RejectsUnknownVersion(t *testing.T) {
	assert := assert.New(t)

	res := NewAnalyzer().AnalyzePoints(nil)
	rec := NewResultRecord("s", 1, res)
	rec.Version = 99

	data, err := rec.MarshalBinary()
	assert.NoError(err)

	var back ResultRecord
	err = back.UnmarshalBinary(data)
	assert.ErrorIs(err, ErrRecordVersion)
}

func TestRecord_RejectsGarbage(t *testing.T) {
	var back ResultRecord
	err := back.UnmarshalBinary([]byte("not msgpack at all"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecordVersion)
}

func TestRecord_InvalidFrame(t *testing.T) {
	assert := assert.New(t)

	res := NewAnalyzer().AnalyzePoints(make([]Point, 2))
	rec := NewResultRecord("s", 9, res)

	assert.False(rec.Valid)
	assert.Equal("Neutral", rec.FACSCode)
	assert.Empty(rec.Dominant)
	assert.Empty(rec.AUs)
	assert.Empty(rec.Emotions)
}
