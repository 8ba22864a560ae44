package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "prepmate"

var (
	// Interview metrics
	activeInterviews = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_interviews",
		Help:      "Number of mock interviews in progress",
	})

	interviewDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "interview_duration_seconds",
		Help:      "Elapsed time of submitted interviews in seconds",
		Buckets:   []float64{60, 300, 600, 900, 1800, 2700, 3600},
	})

	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Interview submissions by outcome",
	}, []string{"outcome", "trigger"}) // outcome: synced, unsynced; trigger: user, timer

	// Recording metrics
	activeRecordings = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_recordings",
		Help:      "Number of open audio pipelines",
	})

	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audio_frames_sent_total",
		Help:      "Audio frames written to the transcription channel",
	})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audio_frames_dropped_total",
		Help:      "Audio frames dropped before reaching the transcription service",
	}, []string{"reason"})

	audioBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audio_bytes_sent_total",
		Help:      "PCM16 bytes sent to the transcription channel",
	})

	// Transcription channel metrics
	transcripts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcripts_total",
		Help:      "Transcript events received",
	}, []string{"type"}) // partial, final

	channelStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "transcription_channel_status",
		Help:      "1 for the current status of each transcription channel provider",
	}, []string{"provider", "status"})

	channelCloses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcription_channel_closes_total",
		Help:      "Transcription channel closes by condition",
	}, []string{"condition"})

	malformedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcription_malformed_messages_total",
		Help:      "Inbound channel messages that could not be parsed",
	})

	connectLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transcription_connect_latency_seconds",
		Help:      "Time to establish the transcription channel",
		Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Backend metrics
	backendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Backend REST requests",
	}, []string{"endpoint", "status"})

	backendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_latency_seconds",
		Help:      "Backend REST latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"endpoint"})

	// Transcript mirror metrics
	eventPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcript_events_published_total",
		Help:      "Transcript events written to Kafka",
	}, []string{"topic", "status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_failures_total",
		Help:      "Total circuit breaker failures",
	}, []string{"service"})
)

// channelStatuses lists every label value the status gauge can take
var channelStatuses = []string{"idle", "initializing", "connecting", "connected", "error"}

// SessionMetrics tracks metrics for a single mock interview
type SessionMetrics struct {
	interviewID    string
	startTime      time.Time
	recordingStart time.Time
	connectStart   time.Time
	mu             sync.Mutex
}

// NewSessionMetrics creates a new metrics tracker for an interview
func NewSessionMetrics(interviewID string) *SessionMetrics {
	return &SessionMetrics{
		interviewID: interviewID,
		startTime:   time.Now(),
	}
}

// RecordSessionStart records the start of a mock interview
func (m *SessionMetrics) RecordSessionStart() {
	activeInterviews.Inc()
}

// RecordSubmission records the end of a mock interview
func (m *SessionMetrics) RecordSubmission(synced bool, trigger string, elapsedSeconds int) {
	activeInterviews.Dec()
	interviewDuration.Observe(float64(elapsedSeconds))

	outcome := "synced"
	if !synced {
		outcome = "unsynced"
	}
	submissions.WithLabelValues(outcome, trigger).Inc()
}

// RecordRecordingStart records an audio pipeline being acquired
func (m *SessionMetrics) RecordRecordingStart() {
	m.mu.Lock()
	m.recordingStart = time.Now()
	m.mu.Unlock()
	activeRecordings.Inc()
}

// RecordRecordingEnd records an audio pipeline being released
func (m *SessionMetrics) RecordRecordingEnd() {
	activeRecordings.Dec()
}

// RecordConnectStart records the start of a channel dial
func (m *SessionMetrics) RecordConnectStart() {
	m.mu.Lock()
	m.connectStart = time.Now()
	m.mu.Unlock()
}

// RecordConnectEnd records the end of a channel dial
func (m *SessionMetrics) RecordConnectEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if success && !m.connectStart.IsZero() {
		connectLatency.Observe(time.Since(m.connectStart).Seconds())
	}
	if !success {
		errorsTotal.WithLabelValues("connect_failed", "transcription").Inc()
	}
}

// RecordTranscript records a reconciled transcript event
func (m *SessionMetrics) RecordTranscript(final bool) {
	RecordTranscript(final)
}

// RecordError records an error
func (m *SessionMetrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordTranscript records a transcript event received from a provider
func RecordTranscript(final bool) {
	if final {
		transcripts.WithLabelValues("final").Inc()
	} else {
		transcripts.WithLabelValues("partial").Inc()
	}
}

// RecordFrameSent records one audio frame written to the channel
func RecordFrameSent(bytes int) {
	framesSent.Inc()
	audioBytes.Add(float64(bytes))
}

// RecordFrameDropped records one audio frame that never reached the service
func RecordFrameDropped(reason string) {
	framesDropped.WithLabelValues(reason).Inc()
}

// RecordMalformedMessage records an unparseable inbound channel message
func RecordMalformedMessage() {
	malformedMessages.Inc()
}

// RecordChannelClose records a channel close by condition
func RecordChannelClose(condition string) {
	channelCloses.WithLabelValues(condition).Inc()
}

// UpdateChannelStatus sets the status gauge for a provider
func UpdateChannelStatus(provider, status string) {
	for _, s := range channelStatuses {
		v := 0.0
		if s == status {
			v = 1.0
		}
		channelStatus.WithLabelValues(provider, s).Set(v)
	}
}

// RecordBackendRequest records one backend REST call
func RecordBackendRequest(endpoint, status string, latency time.Duration) {
	backendRequests.WithLabelValues(endpoint, status).Inc()
	backendLatency.WithLabelValues(endpoint).Observe(latency.Seconds())
}

// RecordEventPublish records a transcript event write
func RecordEventPublish(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	eventPublishes.WithLabelValues(topic, status).Inc()
}

// RecordError records an error outside a session
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
