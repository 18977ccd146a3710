package forest

import (
	"bufio"
	"fmt"
	"io"
	"ip_forest/internal/dataType"
	"ip_forest/internal/metrics"
	"ip_forest/internal/utils"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const DefaultBucketCount = 16

type ipSet struct {
	mu   sync.RWMutex
	tree *dataType.RadixTree
}

type setBucket struct {
	mu   sync.RWMutex
	sets map[string]*ipSet
}

// Forest maps set names to radix trees. Trees are built in isolation and
// then published, so a failed load never disturbs the set being replaced.
type Forest struct {
	buckets     []*setBucket
	bucketCount uint64
	logger      *zap.Logger
}

func NewForest(bucketCount int, logger *zap.Logger) *Forest {
	if bucketCount <= 0 {
		bucketCount = DefaultBucketCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Forest{
		buckets:     make([]*setBucket, bucketCount),
		bucketCount: uint64(bucketCount),
		logger:      logger,
	}
	for i := 0; i < bucketCount; i++ {
		f.buckets[i] = &setBucket{sets: make(map[string]*ipSet)}
	}
	return f
}

func (f *Forest) getBucket(name string) *setBucket {
	h := xxhash.Sum64String(name)
	return f.buckets[h%f.bucketCount]
}

func (f *Forest) get(name string) *ipSet {
	b := f.getBucket(name)
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sets[name]
}

// lockSet returns the live tree of name with its set locked, and the func
// that unlocks it. A set dropped between lookup and locking has been
// replaced or freed, so the lookup is retried.
func (f *Forest) lockSet(name string, write bool) (*dataType.RadixTree, func()) {
	for {
		set := f.get(name)
		if set == nil {
			return nil, nil
		}
		unlock := set.mu.RUnlock
		if write {
			set.mu.Lock()
			unlock = set.mu.Unlock
		} else {
			set.mu.RLock()
		}
		if set.tree != nil {
			return set.tree, unlock
		}
		unlock()
	}
}

// publish installs tree under name and destroys the tree it replaces.
func (f *Forest) publish(name string, set *ipSet) {
	f.updateNodeGauge(name, set.tree)

	b := f.getBucket(name)
	b.mu.Lock()
	old := b.sets[name]
	b.sets[name] = set
	b.mu.Unlock()

	if old != nil {
		old.drop()
	}
}

func (s *ipSet) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree != nil {
		s.tree.Destroy()
		s.tree = nil
	}
}

// Reset replaces name with an empty set.
func (f *Forest) Reset(name string, maxNodes int) {
	f.publish(name, &ipSet{tree: dataType.NewRadixTree(maxNodes)})
	f.logger.Info("set reset", zap.String("set", name))
}

// Load builds name from a rule file. The previous content of name survives
// any error.
func (f *Forest) Load(name, path string, maxNodes int) error {
	file, err := os.Open(path)
	if err != nil {
		metrics.LoadsTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("[ERROR] failed to open rules file %s: %w", path, err)
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			f.logger.Warn("failed to close rules file", zap.String("file", path), zap.Error(err))
		}
	}(file)

	return f.LoadReader(name, path, file, maxNodes)
}

// LoadReader is Load for rules that do not come from a file. src names the
// rules in errors and logs.
func (f *Forest) LoadReader(name, src string, r io.Reader, maxNodes int) error {
	tree, lines, err := buildTree(src, r, maxNodes)
	if err != nil {
		metrics.LoadsTotal.WithLabelValues(name, "error").Inc()
		f.logger.Error("set load failed", zap.String("set", name), zap.String("file", src), zap.Error(err))
		return err
	}
	tree.Compact()
	nodes := tree.Stats().Used

	f.publish(name, &ipSet{tree: tree})
	metrics.LoadsTotal.WithLabelValues(name, "ok").Inc()
	metrics.LinesTotal.WithLabelValues(name).Add(float64(lines))
	f.logger.Info("set loaded",
		zap.String("set", name),
		zap.String("file", src),
		zap.Int("lines", lines),
		zap.Int("nodes", nodes))
	return nil
}

func buildTree(src string, r io.Reader, maxNodes int) (*dataType.RadixTree, int, error) {
	tree := dataType.NewRadixTree(maxNodes)
	lines := 0
	lineNo := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if err := insertLine(tree, line); err != nil {
			tree.Destroy()
			return nil, 0, fmt.Errorf("[ERROR] rules file %s line %d: %w", src, lineNo, err)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		tree.Destroy()
		return nil, 0, fmt.Errorf("[ERROR] failed to read rules file %s: %w", src, err)
	}
	return tree, lines, nil
}

func insertLine(tree *dataType.RadixTree, line string) error {
	blocks, err := utils.ParseLineBlocks(line)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if err := tree.Insert(b.Addr, b.Mask); err != nil {
			return fmt.Errorf("insert %s: %w", utils.FormatBlock(b), err)
		}
	}
	return nil
}

// Append inserts one rule line into an existing set. On error the set may
// hold part of the line; callers that need all-or-nothing use Load.
func (f *Forest) Append(name, line string) error {
	tree, unlock := f.lockSet(name, true)
	if tree == nil {
		return fmt.Errorf("%w: %s", dataType.ErrUnknownSet, name)
	}
	defer unlock()
	if err := insertLine(tree, strings.TrimSpace(line)); err != nil {
		f.logger.Error("append failed", zap.String("set", name), zap.String("line", line), zap.Error(err))
		return err
	}
	metrics.LinesTotal.WithLabelValues(name).Inc()
	f.updateNodeGauge(name, tree)
	f.logger.Debug("line appended", zap.String("set", name), zap.String("line", line))
	return nil
}

func (f *Forest) Has(name string) bool {
	return f.get(name) != nil
}

// Free removes name and releases its tree.
func (f *Forest) Free(name string) bool {
	b := f.getBucket(name)
	b.mu.Lock()
	set, ok := b.sets[name]
	delete(b.sets, name)
	b.mu.Unlock()
	if !ok {
		return false
	}
	set.drop()
	metrics.TrieNodes.DeleteLabelValues(name, "used")
	metrics.TrieNodes.DeleteLabelValues(name, "free")
	f.logger.Info("set freed", zap.String("set", name))
	return true
}

func (f *Forest) Compact(name string) bool {
	tree, unlock := f.lockSet(name, true)
	if tree == nil {
		return false
	}
	defer unlock()
	tree.Compact()
	f.updateNodeGauge(name, tree)
	return true
}

// Match reports whether the dotted-quad addr is covered by set name. Unknown
// sets and malformed addresses never match.
func (f *Forest) Match(name, addr string) bool {
	ip, err := utils.ParseDottedQuad(addr)
	if err != nil {
		return false
	}
	tree, unlock := f.lockSet(name, false)
	if tree == nil {
		return false
	}
	matched := tree.Contains(ip)
	unlock()

	if matched {
		metrics.LookupsTotal.WithLabelValues(name, "hit").Inc()
	} else {
		metrics.LookupsTotal.WithLabelValues(name, "miss").Inc()
	}
	return matched
}

func (f *Forest) Stats(name string) (dataType.TreeStats, bool) {
	tree, unlock := f.lockSet(name, false)
	if tree == nil {
		return dataType.TreeStats{}, false
	}
	defer unlock()
	return tree.Stats(), true
}

// Names returns the set names in lexical order.
func (f *Forest) Names() []string {
	var names []string
	for _, b := range f.buckets {
		b.mu.RLock()
		for name := range b.sets {
			names = append(names, name)
		}
		b.mu.RUnlock()
	}
	sort.Strings(names)
	return names
}

func (f *Forest) updateNodeGauge(name string, tree *dataType.RadixTree) {
	if tree == nil {
		return
	}
	st := tree.Stats()
	metrics.TrieNodes.WithLabelValues(name, "used").Set(float64(st.Used))
	metrics.TrieNodes.WithLabelValues(name, "free").Set(float64(st.Free))
}
