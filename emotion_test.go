package facs

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mapFixture runs detection, grading and emotion mapping over a
// fixture face.
func mapFixture(t *testing.T, pts []Point) []EmotionResult {
	t.Helper()
	aus := detectFixture(t, pts)
	graded := NewIntensityEstimator().EstimateAll(aus)
	return NewEmotionMapper().Map(aus, graded)
}

func TestEmotion_NeutralWhenNothingMatches(t *testing.T) {
	assert := assert.New(t)

	emotions := mapFixture(t, neutralPoints())

	assert.NotEmpty(emotions)
	assert.Equal("neutral", emotions[0].Emotion)
	assert.InDelta(1, emotions[0].Confidence, 1e-9)

	v, a := ValenceArousal(emotions)
	assert.InDelta(0, v, 0.05)
	assert.InDelta(0, a, 0.05)
}

func TestEmotion_SmileReadsAsHappiness(t *testing.T) {
	assert := assert.New(t)

	emotions := mapFixture(t, happyPoints())

	assert.Equal("happiness", emotions[0].Emotion)
	assert.Greater(emotions[0].Confidence, 0.7)
	assert.Equal([]int{6, 12}, emotions[0].MatchedAUs)
	assert.Empty(emotions[0].MissingAUs)

	v, a := ValenceArousal(emotions)
	assert.Greater(v, 0.5)
	assert.Greater(a, 0.0)
}

func TestEmotion_SurpriseOutranksFear(t *testing.T) {
	assert := assert.New(t)

	emotions := mapFixture(t, surprisePoints())

	names := make([]string, len(emotions))
	for i, e := range emotions {
		names[i] = e.Emotion
	}
	assert.Equal([]string{"surprise", "fear"}, names)

	// Fear shares most of the surprise units but misses AU4 and AU20,
	// so it trails on the required ratio.
	assert.Greater(emotions[0].Confidence, emotions[1].Confidence)
	assert.Contains(emotions[1].MissingAUs, 4)
	assert.Contains(emotions[1].MissingAUs, 20)

	_, arousal := ValenceArousal(emotions)
	assert.Greater(arousal, 0.7)
}

func TestEmotion_SadFaceTurnsValenceNegative(t *testing.T) {
	assert := assert.New(t)

	emotions := mapFixture(t, sadPoints())

	assert.Equal("sadness", emotions[0].Emotion)
	assert.Greater(emotions[0].Confidence, 0.7)

	v, a := ValenceArousal(emotions)
	assert.Less(v, -0.5)
	assert.Less(a, 0.0)
}

func TestEmotion_RankingIsSorted(t *testing.T) {
	for _, pts := range [][]Point{neutralPoints(), happyPoints(), surprisePoints(), sadPoints(), smirkPoints()} {
		emotions := mapFixture(t, pts)
		sorted := sort.SliceIsSorted(emotions, func(i, j int) bool {
			return emotions[i].Confidence > emotions[j].Confidence
		})
		assert.True(t, sorted, "emotion list out of order")
	}
}

func TestEmotion_SymmetricSmileIsNotContempt(t *testing.T) {
	emotions := mapFixture(t, happyPoints())
	for _, e := range emotions {
		assert.NotEqual(t, "contempt", e.Emotion)
	}
}

func TestEmotion_SmirkAdmitsContempt(t *testing.T) {
	assert := assert.New(t)

	emotions := mapFixture(t, smirkPoints())

	var contempt *EmotionResult
	for i := range emotions {
		if emotions[i].Emotion == "contempt" {
			contempt = &emotions[i]
		}
	}
	if contempt == nil {
		t.Fatal("one sided smirk should admit contempt")
	}
	assert.Greater(contempt.Confidence, 0.7)
}

func TestEmotion_AsymmetryReport(t *testing.T) {
	assert := assert.New(t)

	report := DetectAsymmetry(detectFixture(t, smirkPoints()))

	assert.True(report.IsAsymmetric)
	assert.True(report.PossibleContempt)
	assert.InDelta(0.525, report.ContemptLikelihood, 1e-3)

	var au12 *AsymmetricAU
	for i := range report.AsymmetricAUs {
		if report.AsymmetricAUs[i].AU == 12 {
			au12 = &report.AsymmetricAUs[i]
		}
	}
	if au12 == nil {
		t.Fatal("AU12 missing from the asymmetry report")
	}
	assert.Equal("left", au12.Side)
}

func TestEmotion_SymmetricFaceReportsNoAsymmetry(t *testing.T) {
	assert := assert.New(t)

	report := DetectAsymmetry(detectFixture(t, happyPoints()))

	assert.False(report.IsAsymmetric)
	assert.False(report.PossibleContempt)
	assert.Empty(report.AsymmetricAUs)
	assert.Zero(report.ContemptLikelihood)
}

func TestEmotion_BlendNormalizes(t *testing.T) {
	assert := assert.New(t)

	emotions := mapFixture(t, smirkPoints())
	blend := Blend(emotions, 0.5)

	assert.Len(blend, 2)
	assert.Contains(blend, "happiness")
	assert.Contains(blend, "contempt")

	var total float64
	for _, share := range blend {
		total += share
	}
	assert.InDelta(1, total, 1e-9)

	// Nothing clears an impossible threshold.
	assert.Empty(Blend(emotions, 1.1))
}

func TestEmotion_ValenceArousalOfEmptyList(t *testing.T) {
	v, a := ValenceArousal(nil)
	assert.Zero(t, v)
	assert.Zero(t, a)
}

func TestEmotion_MapWithoutGrades(t *testing.T) {
	assert := assert.New(t)

	// Without estimator output the mapper falls back to scaled raw
	// scores; the ranking stays the same.
	aus := detectFixture(t, happyPoints())
	emotions := NewEmotionMapper().Map(aus, nil)

	assert.Equal("happiness", emotions[0].Emotion)
	assert.Greater(emotions[0].Confidence, 0.7)
}
