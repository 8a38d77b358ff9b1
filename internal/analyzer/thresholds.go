package analyzer

// Detection thresholds. These are business policy reviewed with the product
// owner, not physical constants.
const (
	// MonologueGapMs is the largest pause that still counts as one
	// continuous tutor monologue.
	MonologueGapMs = 1000

	// SilenceMinGapMs is the smallest inter-utterance gap recorded as a
	// silence.
	SilenceMinGapMs = 1000

	// LongSilenceMs marks a silence long enough to count toward the
	// student_silence_over_15s KPI.
	LongSilenceMs = 15000

	// InterruptionOverlapMs is the minimum cross-speaker overlap counted as
	// an interruption.
	InterruptionOverlapMs = 300

	// Monologue duration buckets.
	MonologueOver3MinMs = 180000
	MonologueOver5MinMs = 300000
)

// Alert thresholds and tags.
const (
	TalkRatioHighThreshold         = 0.70
	TalkRatioSlightlyHighThreshold = 0.60
	FrequentInterruptionsThreshold = 5
	FrequentLongSilencesThreshold  = 3

	AlertTutorTalkTooMuch            = "TUTOR_TALK_TOO_MUCH"
	AlertTutorTalkSlightlyHigh       = "TUTOR_TALK_SLIGHTLY_HIGH"
	AlertLongMonologue               = "LONG_MONOLOGUE"
	AlertFrequentTutorInterruptions  = "FREQUENT_TUTOR_INTERRUPTIONS"
	AlertFrequentLongSilences        = "FREQUENT_LONG_SILENCES"
)
