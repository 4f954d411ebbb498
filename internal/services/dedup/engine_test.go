package dedup

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"testing"

	"snapdedup/internal/config"
	"snapdedup/internal/logger"
	"snapdedup/internal/model"
)

// fakeImaging models each image as a single intensity value. The raw score of two
// representations is |a-b| times the partner's pixel count, so the relative score
// equals the intensity difference.
type fakeImaging struct {
	values  map[string]float64
	sizes   map[string]model.Size
	broken  map[string]bool
	decodes map[string]int
	open    int
}

type fakeFrame struct {
	owner *fakeImaging
	value float64
	size  model.Size
}

func (f *fakeFrame) Size() model.Size { return f.size }
func (f *fakeFrame) Close() error     { f.owner.open--; return nil }

type fakeRepr struct {
	owner  *fakeImaging
	value  float64
	pixels int
}

func (r *fakeRepr) Pixels() int  { return r.pixels }
func (r *fakeRepr) Close() error { r.owner.open--; return nil }

func newFakeImaging() *fakeImaging {
	return &fakeImaging{
		values:  make(map[string]float64),
		sizes:   make(map[string]model.Size),
		broken:  make(map[string]bool),
		decodes: make(map[string]int),
	}
}

func (f *fakeImaging) add(id string, value float64, size model.Size) {
	f.values[id] = value
	f.sizes[id] = size
}

func (f *fakeImaging) Decode(path string) (Frame, error) {
	f.decodes[path]++
	if f.broken[path] {
		return nil, fmt.Errorf("%s: %w", path, model.ErrUnreadable)
	}
	value, ok := f.values[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, model.ErrUnreadable)
	}
	f.open++
	return &fakeFrame{owner: f, value: value, size: f.sizes[path]}, nil
}

func (f *fakeImaging) Normalize(frame Frame, target model.Size) (Frame, error) {
	if frame.Size() == target {
		return frame, nil
	}
	f.open++
	return &fakeFrame{owner: f, value: frame.(*fakeFrame).value, size: target}, nil
}

func (f *fakeImaging) Preprocess(frame Frame) (Representation, error) {
	f.open++
	return &fakeRepr{owner: f, value: frame.(*fakeFrame).value, pixels: frame.Size().Pixels()}, nil
}

func (f *fakeImaging) Compare(a, b Representation) (float64, error) {
	ra, rb := a.(*fakeRepr), b.(*fakeRepr)
	if ra.pixels != rb.pixels {
		return 0, errors.New("size mismatch")
	}
	return math.Abs(ra.value-rb.value) * float64(rb.pixels), nil
}

var vga = model.Size{Height: 480, Width: 640}

func testConfig(threshold float64, capacity int) *config.Config {
	return &config.Config{
		DatasetDirectory: "dataset",
		OutputDirectory:  "out",
		MinContourArea:   config.DefaultMinContourArea,
		ThresholdScore:   threshold,
		CacheCapacity:    capacity,
	}
}

func recordsOf(ids ...string) []model.ImageRecord {
	records := make([]model.ImageRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, model.ImageRecord{ID: id, Camera: model.CameraID(id), Path: id})
	}
	return records
}

func acceptedIDs(result *Result) []string {
	ids := make([]string, 0, len(result.Accepted))
	for _, r := range result.Accepted {
		ids = append(ids, r.ID)
	}
	return ids
}

func run(t *testing.T, imaging *fakeImaging, cfg *config.Config, profile map[string]model.Size, ids ...string) *Result {
	t.Helper()
	engine := NewEngine(cfg, model.NewCameraProfile(profile), imaging, logger.New(io.Discard))
	result, err := engine.Run(recordsOf(ids...))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if imaging.open != 0 {
		t.Errorf("Expected every buffer to be released, %d still open", imaging.open)
	}
	return result
}

func TestRun_NearDuplicateScenario(t *testing.T) {
	imaging := newFakeImaging()
	imaging.add("cam_1.png", 0.0, vga)
	imaging.add("cam_2.png", 0.01, vga)
	imaging.add("cam_3.png", 0.5, vga)

	result := run(t, imaging, testConfig(0.1, 200), map[string]model.Size{"cam": vga},
		"cam_1.png", "cam_2.png", "cam_3.png")

	if got := acceptedIDs(result); !reflect.DeepEqual(got, []string{"cam_1.png", "cam_3.png"}) {
		t.Errorf("Expected [cam_1.png cam_3.png], got %v", got)
	}

	rejected := result.Decisions[1]
	if rejected.Status != model.StatusRejected || rejected.Partner != "cam_1.png" {
		t.Errorf("Expected cam_2.png rejected against cam_1.png, got %+v", rejected)
	}
	if math.Abs(rejected.Score-0.01) > 1e-9 {
		t.Errorf("Expected relative score 0.01, got %v", rejected.Score)
	}
}

func TestRun_IdenticalFramesKeepFirstPerCamera(t *testing.T) {
	imaging := newFakeImaging()
	ids := []string{"c10_a.png", "c10_b.png", "c10_c.png", "c20_a.png", "c20_b.png"}
	for _, id := range ids {
		imaging.add(id, 0.3, vga)
	}

	result := run(t, imaging, testConfig(0.05, 200),
		map[string]model.Size{"c10": vga, "c20": vga}, ids...)

	if got := acceptedIDs(result); !reflect.DeepEqual(got, []string{"c10_a.png", "c20_a.png"}) {
		t.Errorf("Expected the first frame of each camera, got %v", got)
	}
	if result.Count(model.StatusRejected) != 3 {
		t.Errorf("Expected 3 rejections, got %d", result.Count(model.StatusRejected))
	}
}

func TestRun_CamerasAreNeverCompared(t *testing.T) {
	imaging := newFakeImaging()
	imaging.add("c10_a.png", 0.2, vga)
	imaging.add("c20_a.png", 0.2, vga)

	result := run(t, imaging, testConfig(0.5, 200),
		map[string]model.Size{"c10": vga, "c20": vga}, "c10_a.png", "c20_a.png")

	if len(result.Accepted) != 2 {
		t.Errorf("Expected both cameras to keep their frame, got %v", acceptedIDs(result))
	}
	if result.Comparisons != 0 {
		t.Errorf("Expected no cross-camera comparisons, got %d", result.Comparisons)
	}
}

func TestRun_FirstMatchWins(t *testing.T) {
	imaging := newFakeImaging()
	imaging.add("cam_1.png", 0.0, vga)
	imaging.add("cam_3.png", 0.45, vga)

	result := run(t, imaging, testConfig(0.6, 200), map[string]model.Size{"cam": vga},
		"cam_1.png", "cam_3.png")
	if result.Decisions[1].Partner != "cam_1.png" {
		t.Errorf("Expected rejection against the first accepted partner, got %+v", result.Decisions[1])
	}

	imaging = newFakeImaging()
	imaging.add("cam_1.png", 0.0, vga)
	imaging.add("cam_2.png", 0.5, vga)
	imaging.add("cam_3.png", 0.45, vga) // matches cam_1 first, closer to cam_2
	result = run(t, imaging, testConfig(0.49, 200), map[string]model.Size{"cam": vga},
		"cam_1.png", "cam_2.png", "cam_3.png")
	if got := acceptedIDs(result); !reflect.DeepEqual(got, []string{"cam_1.png", "cam_2.png"}) {
		t.Fatalf("Unexpected accepted set %v", got)
	}
	if result.Decisions[2].Partner != "cam_1.png" {
		t.Errorf("Expected cam_3.png rejected against cam_1.png, got %+v", result.Decisions[2])
	}
	if result.Comparisons != 2 {
		t.Errorf("Expected comparisons to stop at the first match (2 total), got %d", result.Comparisons)
	}
}

func TestRun_ThresholdMonotonicity(t *testing.T) {
	values := []float64{0.0, 0.02, 0.05, 0.08, 0.3, 0.31, 0.6, 0.61, 0.9}
	var ids []string
	for i := range values {
		ids = append(ids, fmt.Sprintf("cam_%02d.png", i))
	}

	previous := -1
	for _, threshold := range []float64{1, 0.5, 0.2, 0.1, 0.05, 0.01, 0} {
		imaging := newFakeImaging()
		for i, id := range ids {
			imaging.add(id, values[i], vga)
		}
		result := run(t, imaging, testConfig(threshold, 200), map[string]model.Size{"cam": vga}, ids...)

		rejected := result.Count(model.StatusRejected)
		if previous >= 0 && rejected > previous {
			t.Errorf("Lowering threshold to %v increased rejections from %d to %d", threshold, previous, rejected)
		}
		previous = rejected
	}
	if previous != 0 {
		t.Errorf("Threshold 0 must reject nothing, rejected %d", previous)
	}
}

func TestRun_ScoreEqualToThresholdIsKept(t *testing.T) {
	imaging := newFakeImaging()
	imaging.add("cam_1.png", 0.0, vga)
	imaging.add("cam_2.png", 0.25, vga)

	result := run(t, imaging, testConfig(0.25, 200), map[string]model.Size{"cam": vga}, "cam_1.png", "cam_2.png")
	if len(result.Accepted) != 2 {
		t.Errorf("Rejection requires a score strictly below the threshold, accepted %v", acceptedIDs(result))
	}
}

func TestRun_UnreadableImageIsSkipped(t *testing.T) {
	imaging := newFakeImaging()
	imaging.add("cam_1.png", 0.0, vga)
	imaging.add("cam_3.png", 0.5, vga)
	imaging.add("cam_4.png", 0.51, vga)
	imaging.broken["cam_2.png"] = true

	result := run(t, imaging, testConfig(0.1, 200), map[string]model.Size{"cam": vga},
		"cam_1.png", "cam_2.png", "cam_3.png", "cam_4.png")

	if len(result.Decisions) != 4 {
		t.Fatalf("Expected a decision for every image, got %d", len(result.Decisions))
	}
	if result.Decisions[1].Status != model.StatusSkipped {
		t.Errorf("Expected cam_2.png skipped, got %+v", result.Decisions[1])
	}
	if got := acceptedIDs(result); !reflect.DeepEqual(got, []string{"cam_1.png", "cam_3.png"}) {
		t.Errorf("Expected [cam_1.png cam_3.png], got %v", got)
	}
}

func TestRun_MissingCanonicalSizeFailsImageOnly(t *testing.T) {
	imaging := newFakeImaging()
	imaging.add("cam_1.png", 0.0, vga)
	imaging.add("c99_1.png", 0.0, vga)

	result := run(t, imaging, testConfig(0.1, 200), map[string]model.Size{"cam": vga}, "c99_1.png", "cam_1.png")

	if result.Decisions[0].Status != model.StatusFailed {
		t.Errorf("Expected c99_1.png to fail, got %+v", result.Decisions[0])
	}
	if result.Decisions[0].Err == "" {
		t.Error("Expected the failure reason to be recorded")
	}
	if got := acceptedIDs(result); !reflect.DeepEqual(got, []string{"cam_1.png"}) {
		t.Errorf("Expected [cam_1.png], got %v", got)
	}
}

func TestRun_NormalizesToCanonicalSize(t *testing.T) {
	small := model.Size{Height: 240, Width: 320}
	imaging := newFakeImaging()
	imaging.add("cam_1.png", 0.0, vga)
	imaging.add("cam_2.png", 0.0, small)

	result := run(t, imaging, testConfig(0.1, 200), map[string]model.Size{"cam": vga}, "cam_1.png", "cam_2.png")

	if result.Decisions[1].Status != model.StatusRejected {
		t.Errorf("Expected resized duplicate to be rejected, got %+v", result.Decisions[1])
	}
}

func TestRun_CacheEvictionRecomputes(t *testing.T) {
	imaging := newFakeImaging()
	ids := []string{"cam_1.png", "cam_2.png", "cam_3.png", "cam_4.png"}
	for i, id := range ids[:3] {
		imaging.add(id, float64(i), vga)
	}
	imaging.add("cam_4.png", 0.001, vga) // duplicate of cam_1

	result := run(t, imaging, testConfig(0.1, 2), map[string]model.Size{"cam": vga}, ids...)

	if result.Decisions[3].Status != model.StatusRejected || result.Decisions[3].Partner != "cam_1.png" {
		t.Errorf("Expected cam_4.png rejected against evicted cam_1.png, got %+v", result.Decisions[3])
	}
	if imaging.decodes["cam_1.png"] != 2 {
		t.Errorf("Expected cam_1.png to be decoded again after eviction, decoded %d times", imaging.decodes["cam_1.png"])
	}
	if result.CacheMisses != 1 {
		t.Errorf("Expected exactly one cache miss, got %d", result.CacheMisses)
	}
	if result.CacheHits != 3 {
		t.Errorf("Expected 3 cache hits, got %d", result.CacheHits)
	}
}

func TestRun_ZeroCapacityAlwaysRecomputes(t *testing.T) {
	imaging := newFakeImaging()
	imaging.add("cam_1.png", 0.0, vga)
	imaging.add("cam_2.png", 0.5, vga)
	imaging.add("cam_3.png", 1.0, vga)

	result := run(t, imaging, testConfig(0.1, 0), map[string]model.Size{"cam": vga}, "cam_1.png", "cam_2.png", "cam_3.png")

	if len(result.Accepted) != 3 {
		t.Errorf("Expected all frames accepted, got %v", acceptedIDs(result))
	}
	if result.CacheHits != 0 || result.CacheMisses != 3 {
		t.Errorf("Expected 0 hits and 3 misses, got %d and %d", result.CacheHits, result.CacheMisses)
	}
}

func TestRun_UnreadablePartnerIsSkipped(t *testing.T) {
	imaging := newFakeImaging()
	imaging.add("cam_1.png", 0.0, vga)
	imaging.add("cam_3.png", 0.0, vga)

	// cam_1.png becomes unreadable after being accepted; with no cache it must be recomputed.
	broken := &breakAfterFirstDecode{fakeImaging: imaging, id: "cam_1.png"}
	engine := NewEngine(testConfig(0.1, 0), model.NewCameraProfile(map[string]model.Size{"cam": vga}), broken, logger.New(io.Discard))
	result, err := engine.Run(recordsOf("cam_1.png", "cam_3.png"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Decisions[1].Status != model.StatusAccepted {
		t.Errorf("Expected cam_3.png accepted when its only partner is unreadable, got %+v", result.Decisions[1])
	}
	if result.Comparisons != 0 {
		t.Errorf("Expected no comparison against an unreadable partner, got %d", result.Comparisons)
	}
	if imaging.open != 0 {
		t.Errorf("Expected every buffer to be released, %d still open", imaging.open)
	}
}

type breakAfterFirstDecode struct {
	*fakeImaging
	id string
}

func (b *breakAfterFirstDecode) Decode(path string) (Frame, error) {
	if path == b.id && b.decodes[path] > 0 {
		b.decodes[path]++
		return nil, fmt.Errorf("%s: %w", path, model.ErrUnreadable)
	}
	return b.fakeImaging.Decode(path)
}

func TestRun_CompareErrorFailsRun(t *testing.T) {
	imaging := newFakeImaging()
	imaging.add("cam_1.png", 0.0, vga)
	imaging.add("cam_2.png", 0.0, vga)

	engine := NewEngine(testConfig(0.1, 10), model.NewCameraProfile(map[string]model.Size{"cam": vga}), &failingCompare{imaging}, logger.New(io.Discard))
	if _, err := engine.Run(recordsOf("cam_1.png", "cam_2.png")); err == nil {
		t.Error("Expected compare failure to fail the run")
	}
	if imaging.open != 0 {
		t.Errorf("Expected buffers to be released on failure, %d open", imaging.open)
	}
}

type failingCompare struct {
	*fakeImaging
}

func (f *failingCompare) Compare(a, b Representation) (float64, error) {
	return 0, errors.New("compare failed")
}

func TestRun_ReportsProgress(t *testing.T) {
	imaging := newFakeImaging()
	imaging.add("cam_1.png", 0.0, vga)
	imaging.add("cam_2.png", 0.5, vga)

	engine := NewEngine(testConfig(0.1, 10), model.NewCameraProfile(map[string]model.Size{"cam": vga}), imaging, logger.New(io.Discard))
	var seen []int
	engine.OnProgress(func(done, total int) { seen = append(seen, done*100/total) })

	if _, err := engine.Run(recordsOf("cam_1.png", "cam_2.png")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !reflect.DeepEqual(seen, []int{50, 100}) {
		t.Errorf("Expected progress [50 100], got %v", seen)
	}
}
