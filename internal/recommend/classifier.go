// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// classifierModelKey is the model storage key for the preference model.
const classifierModelKey = "preference-classifier"

// classifierLayerSizes is the dense architecture: input, three hidden
// layers, scalar probability output.
var classifierLayerSizes = []int{featureVectorSize, 128, 64, 32, 1}

// Classifier is a small trained binary classifier predicting preference
// probability from a flattened feature vector. It is versioned,
// retrainable, and disposable: version 0 means untrained, in which state
// every prediction is a neutral 0.5.
//
// Prediction takes a shared lock so concurrent scoring never serializes;
// training and dispose take the exclusive lock. Overlapping Train calls
// are rejected, not queued.
type Classifier struct {
	cfg     *Config
	storage ModelStorage
	logger  zerolog.Logger

	mu           sync.RWMutex
	net          *network
	version      int
	lastLoss     float64
	lastAccuracy float64

	// busy guards against overlapping training runs.
	busy sync.Mutex

	rng *rand.Rand
	// progressFn, when set, receives per-epoch progress during training.
	progressFn func(epoch, total int)
}

// NewClassifier creates an uninitialized classifier. Initialize must be
// called before training; prediction on an uninitialized classifier
// returns neutral values.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewClassifier(cfg *Config, storage ModelStorage, logger zerolog.Logger) *Classifier {
	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}
	return &Classifier{
		cfg:     cfg,
		storage: storage,
		logger:  logger.With().Str("component", "classifier").Logger(),
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec // math/rand is fine for weight init
	}
}

// Initialize restores the persisted model if one exists, otherwise builds
// a fresh untrained network at version 0.
func (c *Classifier) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.storage.LoadModel(ctx, classifierModelKey)
	if err == nil && len(data) > 0 {
		state, decErr := decodeModelState(data)
		if decErr != nil {
			return fmt.Errorf("decode stored model: %w", decErr)
		}
		c.net = &network{sizes: state.Sizes, weights: state.Weights, biases: state.Biases}
		c.version = state.Version
		c.lastLoss = state.Loss
		c.lastAccuracy = state.Accuracy
		c.logger.Info().
			Int("version", c.version).
			Float64("accuracy", c.lastAccuracy).
			Msg("restored preference model")
		return nil
	}

	c.net = newNetwork(classifierLayerSizes, c.rng)
	c.version = 0
	c.logger.Info().Msg("initialized untrained preference model")
	return nil
}

// SetProgressFunc registers a per-epoch progress callback used by the
// trainer to surface epoch counts.
func (c *Classifier) SetProgressFunc(fn func(epoch, total int)) {
	c.mu.Lock()
	c.progressFn = fn
	c.mu.Unlock()
}

// IsReady reports whether the classifier has completed at least one
// successful training run.
func (c *Classifier) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version > 0
}

// Version returns the model version; 0 means untrained.
func (c *Classifier) Version() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Confidence is the training-maturity estimate: 0 until trained,
// thereafter 0.7*lastAccuracy + 0.3*min(1, version/10).
func (c *Classifier) Confidence() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.confidenceLocked()
}

func (c *Classifier) confidenceLocked() float64 {
	if c.version == 0 {
		return 0
	}
	maturity := math.Min(1, float64(c.version)/10)
	return 0.7*c.lastAccuracy + 0.3*maturity
}

// Classifier blend weight bounds.
const (
	mlBaseWeight = 0.1
	mlMaxWeight  = 0.6
)

// MLWeight returns the classifier's share of the final blend: 0 while
// untrained, otherwise 0.1 + 0.5*confidence, so influence grows smoothly
// with maturity inside [0.1, 0.6].
func (c *Classifier) MLWeight() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.version == 0 {
		return 0
	}
	w := mlBaseWeight + 0.5*c.confidenceLocked()
	if w > mlMaxWeight {
		w = mlMaxWeight
	}
	return w
}

// Predict returns a preference probability per input vector. Before any
// successful training every input scores a neutral 0.5.
func (c *Classifier) Predict(vectors [][]float64) []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]float64, len(vectors))
	if c.version == 0 || c.net == nil {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, v := range vectors {
		out[i] = c.net.predict(fitVector(v))
	}
	return out
}

// PredictSingle returns the preference probability for one vector.
func (c *Classifier) PredictSingle(vector []float64) float64 {
	return c.Predict([][]float64{vector})[0]
}

// Train fits the model on the dataset for the configured epoch budget with
// a held-out validation split. Failures are reported in the result, never
// panicked or returned: uninitialized model, an in-flight run, or a
// dataset below the sample floor all fail fast without touching the
// current model. On success the model is persisted before the in-memory
// version is incremented.
func (c *Classifier) Train(ctx context.Context, dataset *TrainingDataset) TrainingResult {
	start := time.Now()

	if !c.busy.TryLock() {
		return c.failureResult(start, ErrTrainingInProgress.Error())
	}
	defer c.busy.Unlock()

	c.mu.RLock()
	initialized := c.net != nil
	c.mu.RUnlock()
	if !initialized {
		return c.failureResult(start, ErrModelNotReady.Error())
	}

	total := dataset.Total()
	if total < c.cfg.Training.MinSamples {
		return c.failureResult(start,
			fmt.Sprintf("%s: %d samples, need %d", ErrInsufficientData.Error(), total, c.cfg.Training.MinSamples))
	}

	samples := prepareSamples(dataset)
	trainSet, valSet := c.split(samples)
	posW, negW := classWeights(samples)

	c.logger.Info().
		Int("samples", total).
		Int("train", len(trainSet)).
		Int("validation", len(valSet)).
		Msg("starting classifier training")

	// Fit a copy so an in-flight failure never corrupts the live model.
	c.mu.RLock()
	candidate := c.net.clone()
	nextVersion := c.version + 1
	c.mu.RUnlock()

	history, err := c.fit(ctx, candidate, trainSet, posW, negW)
	if err != nil {
		return c.failureResult(start, err.Error())
	}

	valLoss, valAccuracy := evaluate(candidate, valSet)
	finalLoss := history[len(history)-1]

	if err := c.persist(ctx, candidate, nextVersion, finalLoss, valAccuracy); err != nil {
		return c.failureResult(start, fmt.Sprintf("persist model: %v", err))
	}

	c.mu.Lock()
	c.net = candidate
	c.version = nextVersion
	c.lastLoss = finalLoss
	c.lastAccuracy = valAccuracy
	c.mu.Unlock()

	c.logger.Info().
		Int("version", nextVersion).
		Float64("loss", finalLoss).
		Float64("accuracy", valAccuracy).
		Dur("duration", time.Since(start)).
		Msg("classifier training complete")

	return TrainingResult{
		Success: true,
		Metrics: TrainingMetrics{
			Loss:           finalLoss,
			Accuracy:       valAccuracy,
			ValidationLoss: valLoss,
			LossHistory:    history,
		},
		Model:     c.ModelInfo(),
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	}
}

// Dispose persists the current model state and releases it. Callers must
// quiesce scoring first; dispose must not run concurrently with in-flight
// predictions.
func (c *Classifier) Dispose(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.net == nil {
		return nil
	}
	if c.version > 0 {
		data, err := encodeModelState(c.stateLocked())
		if err != nil {
			return fmt.Errorf("encode model: %w", err)
		}
		if err := c.storage.SaveModel(ctx, classifierModelKey, data); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
	}
	c.net = nil
	c.logger.Info().Int("version", c.version).Msg("classifier disposed")
	return nil
}

// ModelInfo describes the current model.
func (c *Classifier) ModelInfo() ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modelInfo()
}

func (c *Classifier) modelInfo() ModelInfo {
	params := 0
	for i := 1; i < len(classifierLayerSizes); i++ {
		params += classifierLayerSizes[i]*classifierLayerSizes[i-1] + classifierLayerSizes[i]
	}
	arch := "dense"
	for i, s := range classifierLayerSizes {
		if i == 0 {
			arch = fmt.Sprintf("%s %d", arch, s)
			continue
		}
		arch = fmt.Sprintf("%s-%d", arch, s)
	}
	return ModelInfo{
		Version:        c.version,
		ParameterCount: params,
		Architecture:   arch,
	}
}

// failureResult builds a failed TrainingResult carrying the current model
// info so diagnostics keep the version that rejected the run.
func (c *Classifier) failureResult(start time.Time, reason string) TrainingResult {
	c.mu.RLock()
	info := c.modelInfo()
	c.mu.RUnlock()

	c.logger.Warn().Str("reason", reason).Msg("classifier training rejected")
	return TrainingResult{
		Success:   false,
		Model:     info,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
		Error:     reason,
	}
}

// weightedSample is a training example ready for fitting.
type weightedSample struct {
	vector []float64
	label  float64
}

// prepareSamples flattens the dataset partitions into fitted vectors.
func prepareSamples(dataset *TrainingDataset) []weightedSample {
	raw := dataset.all()
	out := make([]weightedSample, 0, len(raw))
	for _, s := range raw {
		out = append(out, weightedSample{
			vector: fitVector(s.Features),
			label:  clamp01(s.Label),
		})
	}
	return out
}

// classWeights computes inverse-frequency weights from the label
// distribution so the minority class is not drowned out. Fractional labels
// contribute proportionally to both classes.
func classWeights(samples []weightedSample) (pos, neg float64) {
	var posMass, negMass float64
	for _, s := range samples {
		posMass += s.label
		negMass += 1 - s.label
	}
	total := posMass + negMass
	if posMass == 0 || negMass == 0 {
		return 1, 1
	}
	return total / (2 * posMass), total / (2 * negMass)
}

// split shuffles the samples and holds out the configured validation
// fraction. The split keeps at least one training sample.
func (c *Classifier) split(samples []weightedSample) (trainSet, valSet []weightedSample) {
	shuffled := make([]weightedSample, len(samples))
	copy(shuffled, samples)

	c.mu.Lock()
	c.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	c.mu.Unlock()

	valCount := int(float64(len(shuffled)) * c.cfg.Training.ValidationSplit)
	if valCount >= len(shuffled) {
		valCount = len(shuffled) - 1
	}
	cut := len(shuffled) - valCount
	return shuffled[:cut], shuffled[cut:]
}

// fit runs the SGD epochs on the candidate network, returning the per-epoch
// loss history.
func (c *Classifier) fit(ctx context.Context, net *network, trainSet []weightedSample, posW, negW float64) ([]float64, error) {
	lr := c.cfg.Training.LearningRate
	epochs := c.cfg.Training.Epochs

	c.mu.RLock()
	progress := c.progressFn
	c.mu.RUnlock()

	history := make([]float64, 0, epochs)
	order := make([]int, len(trainSet))
	for i := range order {
		order[i] = i
	}

	for epoch := 1; epoch <= epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("training canceled at epoch %d: %w", epoch, err)
		}

		c.mu.Lock()
		c.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		c.mu.Unlock()

		var epochLoss float64
		for _, idx := range order {
			s := trainSet[idx]
			w := s.label*posW + (1-s.label)*negW
			epochLoss += net.step(s.vector, s.label, w, lr)
		}
		history = append(history, epochLoss/float64(len(trainSet)))

		if progress != nil {
			progress(epoch, epochs)
		}
	}
	return history, nil
}

// evaluate computes validation loss and accuracy. An empty validation set
// scores a conservative 0.5 accuracy.
func evaluate(net *network, valSet []weightedSample) (loss, accuracy float64) {
	if len(valSet) == 0 {
		return 0, 0.5
	}
	correct := 0
	for _, s := range valSet {
		p := net.predict(s.vector)
		loss += bceLoss(p, s.label)
		if (p >= 0.5) == (s.label >= 0.5) {
			correct++
		}
	}
	return loss / float64(len(valSet)), float64(correct) / float64(len(valSet))
}

// persist atomically stores the candidate model and its metadata.
func (c *Classifier) persist(ctx context.Context, net *network, version int, loss, accuracy float64) error {
	state := modelState{
		Sizes:     net.sizes,
		Weights:   net.weights,
		Biases:    net.biases,
		Version:   version,
		Loss:      loss,
		Accuracy:  accuracy,
		TrainedAt: time.Now(),
	}
	data, err := encodeModelState(state)
	if err != nil {
		return err
	}
	return c.storage.SaveModel(ctx, classifierModelKey, data)
}

func (c *Classifier) stateLocked() modelState {
	return modelState{
		Sizes:     c.net.sizes,
		Weights:   c.net.weights,
		Biases:    c.net.biases,
		Version:   c.version,
		Loss:      c.lastLoss,
		Accuracy:  c.lastAccuracy,
		TrainedAt: time.Now(),
	}
}

// fitVector pads or truncates a vector to the model input width.
func fitVector(v []float64) []float64 {
	if len(v) == featureVectorSize {
		return v
	}
	out := make([]float64, featureVectorSize)
	copy(out, v)
	return out
}

// modelState is the gob-serialized model snapshot.
type modelState struct {
	Sizes     []int
	Weights   [][][]float64
	Biases    [][]float64
	Version   int
	Loss      float64
	Accuracy  float64
	TrainedAt time.Time
}

func encodeModelState(state modelState) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeModelState(data []byte) (modelState, error) {
	var state modelState
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state)
	return state, err
}

// network is a dense feed-forward net with ReLU hidden activations and a
// sigmoid output. weights[l][j][i] connects input i of layer l to unit j.
type network struct {
	sizes   []int
	weights [][][]float64
	biases  [][]float64
}

// newNetwork builds a network with He-initialized weights.
func newNetwork(sizes []int, rng *rand.Rand) *network {
	weights := make([][][]float64, len(sizes)-1)
	biases := make([][]float64, len(sizes)-1)
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		scale := math.Sqrt(2.0 / float64(in))
		weights[l] = make([][]float64, out)
		biases[l] = make([]float64, out)
		for j := 0; j < out; j++ {
			weights[l][j] = make([]float64, in)
			for i := 0; i < in; i++ {
				weights[l][j][i] = rng.NormFloat64() * scale
			}
		}
	}
	return &network{sizes: sizes, weights: weights, biases: biases}
}

// clone deep-copies the network.
func (n *network) clone() *network {
	weights := make([][][]float64, len(n.weights))
	biases := make([][]float64, len(n.biases))
	for l := range n.weights {
		weights[l] = make([][]float64, len(n.weights[l]))
		for j := range n.weights[l] {
			weights[l][j] = append([]float64(nil), n.weights[l][j]...)
		}
		biases[l] = append([]float64(nil), n.biases[l]...)
	}
	return &network{sizes: append([]int(nil), n.sizes...), weights: weights, biases: biases}
}

// forward computes all layer activations. activations[0] is the input;
// the last activation slice has a single sigmoid unit.
func (n *network) forward(input []float64) [][]float64 {
	activations := make([][]float64, len(n.sizes))
	activations[0] = input
	for l := 0; l < len(n.weights); l++ {
		out := make([]float64, n.sizes[l+1])
		last := l == len(n.weights)-1
		for j := range out {
			z := n.biases[l][j]
			for i, a := range activations[l] {
				z += n.weights[l][j][i] * a
			}
			if last {
				out[j] = sigmoid(z)
			} else {
				out[j] = relu(z)
			}
		}
		activations[l+1] = out
	}
	return activations
}

// predict runs a forward pass and returns the output probability.
func (n *network) predict(input []float64) float64 {
	activations := n.forward(input)
	return activations[len(activations)-1][0]
}

// step performs one weighted SGD update and returns the sample's loss.
// With a sigmoid output and cross-entropy loss the output delta reduces to
// (prediction - label).
func (n *network) step(input []float64, label, sampleWeight, lr float64) float64 {
	activations := n.forward(input)
	pred := activations[len(activations)-1][0]

	deltas := make([][]float64, len(n.weights))
	deltas[len(deltas)-1] = []float64{(pred - label) * sampleWeight}

	for l := len(n.weights) - 2; l >= 0; l-- {
		next := deltas[l+1]
		cur := make([]float64, n.sizes[l+1])
		for j := range cur {
			var sum float64
			for k := range next {
				sum += n.weights[l+1][k][j] * next[k]
			}
			if activations[l+1][j] > 0 { // ReLU derivative
				cur[j] = sum
			}
		}
		deltas[l] = cur
	}

	for l := range n.weights {
		for j := range n.weights[l] {
			d := deltas[l][j]
			if d == 0 {
				continue
			}
			for i, a := range activations[l] {
				n.weights[l][j][i] -= lr * d * a
			}
			n.biases[l][j] -= lr * d
		}
	}

	return bceLoss(pred, label) * sampleWeight
}

// bceLoss is binary cross-entropy with clamping away from log(0).
func bceLoss(pred, label float64) float64 {
	const eps = 1e-7
	p := clamp(pred, eps, 1-eps)
	return -(label*math.Log(p) + (1-label)*math.Log(1-p))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func relu(z float64) float64 {
	if z < 0 {
		return 0
	}
	return z
}
