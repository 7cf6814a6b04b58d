// Package fragments maintains an incremental index of GraphQL fragment
// definitions across files and answers which external fragments a document
// depends on.
//
// Every update that changes the set of fragment names or bodies held by a
// file advances the registry version by one and appends the changed names
// to a history log. Cached answers remember the version they were computed
// at and stay valid while none of the names they depend on appear in the
// history since then.
package fragments

import (
	"sort"

	"github.com/tliron/commonlog"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/jward/gqlembed/internal/lru"
	"github.com/jward/gqlembed/internal/source"
)

// DefaultCacheSize is the number of ExternalFragments results kept.
const DefaultCacheSize = 256

// Text is one document literal submitted for a file: its combined text,
// the source offset of the literal, and the ranges of the text that were
// substituted from other literals.
type Text struct {
	Text    string
	Offset  int
	Foreign []source.Span
}

func (t Text) foreign(offset int) bool {
	for _, s := range t.Foreign {
		if s.Contains(offset) {
			return true
		}
	}
	return false
}

func (t Text) sameContent(o Text) bool {
	if t.Text != o.Text || len(t.Foreign) != len(o.Foreign) {
		return false
	}
	for i := range t.Foreign {
		if t.Foreign[i] != o.Foreign[i] {
			return false
		}
	}
	return true
}

// Entry is one fragment definition found in one text. Entries are owned by
// the registry; their Offset is kept current when a literal moves within
// its file without changing.
type Entry struct {
	File string
	Name string

	// Offset is the source offset of the literal the fragment came from.
	Offset int
	// TextOffset is where the definition starts inside Text.
	TextOffset int
	// NameSpan locates the fragment name inside Text.
	NameSpan source.Span

	Text string
	Body string
	Node *ast.FragmentDefinition
}

type slot struct {
	text    Text
	entries []*Entry
}

type fileState struct {
	version string
	slots   []slot
	bodies  map[string]string
}

// Definitions partitions fragments by name. Valid holds names defined once;
// Duplicated holds names defined more than once, with every occurrence.
// Maps returned by the registry must not be modified.
type Definitions struct {
	Valid      map[string]*Entry
	Duplicated map[string][]*Entry
}

type snapshot struct {
	version int
	layout  int
	defs    Definitions
}

type externalKey struct {
	file   string
	offset int
}

type externalEntry struct {
	internal   []string
	spreads    []string
	referenced map[string]struct{}
	version    int
	layout     int
	result     []*ast.FragmentDefinition
}

// Registry indexes fragment definitions by file. It is not safe for
// concurrent use.
type Registry struct {
	version int
	history [][]string
	// layout advances whenever entries are replaced, even when no name or
	// body changed. moved[i] holds the names of the entries replaced by the
	// transition i -> i+1, so cached entries of other names stay usable.
	layout int
	moved  [][]string

	// partitions counts whole-registry partitions computed.
	partitions int

	files    map[string]*fileState
	snapshot *snapshot
	external *lru.Cache[externalKey, *externalEntry]
	log      commonlog.Logger
}

// Option configures a Registry.
type Option func(*registryConfig)

type registryConfig struct {
	cacheSize int
	log       commonlog.Logger
}

// WithCacheSize sets how many ExternalFragments results are kept.
func WithCacheSize(n int) Option {
	return func(c *registryConfig) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// WithLogger sets the registry's logger.
func WithLogger(log commonlog.Logger) Option {
	return func(c *registryConfig) {
		c.log = log
	}
}

// NewRegistry creates an empty registry at version 0.
func NewRegistry(opts ...Option) *Registry {
	cfg := registryConfig{
		cacheSize: DefaultCacheSize,
		log:       commonlog.GetLogger("gqlembed.fragments"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{
		files:    make(map[string]*fileState),
		external: lru.MustNew[externalKey, *externalEntry](cfg.cacheSize),
		log:      cfg.log,
	}
}

// Version returns the current registry version.
func (r *Registry) Version() int {
	return r.version
}

// History returns the names changed by the transition from version v to
// v+1, or nil when v is out of range.
func (r *Registry) History(v int) []string {
	if v < 0 || v >= len(r.history) {
		return nil
	}
	return r.history[v]
}

// ChangedSince returns every name changed after version v.
func (r *Registry) ChangedSince(v int) map[string]struct{} {
	changed := make(map[string]struct{})
	if v < 0 {
		v = 0
	}
	for _, names := range r.history[min(v, len(r.history)):] {
		for _, n := range names {
			changed[n] = struct{}{}
		}
	}
	return changed
}

// RegisterDocument replaces the fragments held for file with those found in
// texts. A text identical to the one previously submitted at the same
// position is not parsed again. Registering the version already held is a
// no-op. The returned Change is empty when the update left every name and
// body as it was.
func (r *Registry) RegisterDocument(file, version string, texts []Text) Change {
	prev := r.files[file]
	if prev != nil && version != "" && prev.version == version {
		return Change{}
	}

	next := &fileState{version: version, slots: make([]slot, 0, len(texts))}
	moved := make(map[string]struct{})
	kept := make(map[int]bool)
	for i, t := range texts {
		if prev != nil && i < len(prev.slots) && prev.slots[i].text.sameContent(t) {
			same := prev.slots[i]
			if same.text.Offset != t.Offset {
				for _, e := range same.entries {
					e.Offset = t.Offset
				}
			}
			kept[i] = true
			next.slots = append(next.slots, slot{text: t, entries: same.entries})
			continue
		}
		entries := parseEntries(file, t)
		addNames(moved, entries)
		next.slots = append(next.slots, slot{text: t, entries: entries})
	}
	if prev != nil {
		for i, s := range prev.slots {
			if !kept[i] {
				addNames(moved, s.entries)
			}
		}
	}
	next.bodies = bodies(next.slots)

	var old map[string]string
	if prev != nil {
		old = prev.bodies
	}
	if len(next.slots) == 0 {
		delete(r.files, file)
	} else {
		r.files[file] = next
	}
	r.relayout(moved)

	change := Diff(old, next.bodies)
	r.advance(file, change)
	return change
}

// RemoveDocument forgets file, advancing the version if it held fragments.
func (r *Registry) RemoveDocument(file string) Change {
	prev, ok := r.files[file]
	if !ok {
		return Change{}
	}
	delete(r.files, file)
	moved := make(map[string]struct{})
	for _, s := range prev.slots {
		addNames(moved, s.entries)
	}
	r.relayout(moved)

	change := Diff(prev.bodies, nil)
	r.advance(file, change)
	return change
}

func (r *Registry) advance(file string, change Change) {
	if change.Empty() {
		return
	}
	r.history = append(r.history, change.Names())
	r.version++
	r.log.Debugf("registry version %d after %s: +%v -%v ~%v",
		r.version, file, change.Appeared, change.Disappeared, change.Updated)
}

// relayout records that the entries of names were replaced.
func (r *Registry) relayout(names map[string]struct{}) {
	if len(names) == 0 {
		return
	}
	list := make([]string, 0, len(names))
	for n := range names {
		list = append(list, n)
	}
	sort.Strings(list)
	r.moved = append(r.moved, list)
	r.layout++
}

func addNames(set map[string]struct{}, entries []*Entry) {
	for _, e := range entries {
		set[e.Name] = struct{}{}
	}
}

// staleSince returns every name whose body changed after version v or
// whose entries were replaced after layout l.
func (r *Registry) staleSince(v, l int) map[string]struct{} {
	stale := r.ChangedSince(v)
	for _, names := range r.moved[min(max(l, 0), len(r.moved)):] {
		for _, n := range names {
			stale[n] = struct{}{}
		}
	}
	return stale
}

// bodies maps each fragment name to its printed bodies. A name defined more
// than once in the file maps to all of its bodies in order.
func bodies(slots []slot) map[string]string {
	out := make(map[string]string)
	for _, s := range slots {
		for _, e := range s.entries {
			if prev, ok := out[e.Name]; ok {
				out[e.Name] = prev + "\x00" + e.Body
			} else {
				out[e.Name] = e.Body
			}
		}
	}
	return out
}

// Files returns the registered file names, sorted.
func (r *Registry) Files() []string {
	files := make([]string, 0, len(r.files))
	for f := range r.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Entries returns every entry held for file in document order.
func (r *Registry) Entries(file string) []*Entry {
	st, ok := r.files[file]
	if !ok {
		return nil
	}
	var out []*Entry
	for _, s := range st.slots {
		out = append(out, s.entries...)
	}
	return out
}

// entries returns every entry in deterministic order: file name, slot,
// then position in the text.
func (r *Registry) entries() []*Entry {
	var out []*Entry
	for _, f := range r.Files() {
		out = append(out, r.Entries(f)...)
	}
	return out
}

// FragmentDefinitions returns every fragment node except those whose name
// is in ignore.
func (r *Registry) FragmentDefinitions(ignore []string) []*ast.FragmentDefinition {
	ignored := toSet(ignore)
	var out []*ast.FragmentDefinition
	for _, e := range r.entries() {
		if _, skip := ignored[e.Name]; skip {
			continue
		}
		out = append(out, e.Node)
	}
	return out
}

// UniqueDefinitions partitions all fragments into names defined once and
// names defined more than once, then drops the names in ignore.
//
// The partition of the whole registry is cached. With an ignore list, a
// stale cached partition is still used when every name changed or moved
// since it was computed is ignored anyway.
func (r *Registry) UniqueDefinitions(ignore []string) Definitions {
	if len(ignore) == 0 {
		if r.snapshot == nil || r.snapshot.version != r.version || r.snapshot.layout != r.layout {
			r.snapshot = r.partition()
		}
		return r.snapshot.defs
	}

	ignored := toSet(ignore)
	if r.snapshot == nil || !r.ignorable(r.snapshot, ignored) {
		r.snapshot = r.partition()
	}
	return r.snapshot.defs.without(ignored)
}

func (r *Registry) ignorable(snap *snapshot, ignored map[string]struct{}) bool {
	for n := range r.staleSince(snap.version, snap.layout) {
		if _, ok := ignored[n]; !ok {
			return false
		}
	}
	return true
}

func (r *Registry) partition() *snapshot {
	r.partitions++
	byName := make(map[string][]*Entry)
	for _, e := range r.entries() {
		byName[e.Name] = append(byName[e.Name], e)
	}
	defs := Definitions{
		Valid:      make(map[string]*Entry),
		Duplicated: make(map[string][]*Entry),
	}
	for name, list := range byName {
		if len(list) == 1 {
			defs.Valid[name] = list[0]
		} else {
			defs.Duplicated[name] = list
		}
	}
	return &snapshot{version: r.version, layout: r.layout, defs: defs}
}

func (d Definitions) without(ignored map[string]struct{}) Definitions {
	out := Definitions{
		Valid:      make(map[string]*Entry, len(d.Valid)),
		Duplicated: make(map[string][]*Entry),
	}
	for name, e := range d.Valid {
		if _, skip := ignored[name]; !skip {
			out.Valid[name] = e
		}
	}
	for name, list := range d.Duplicated {
		if _, skip := ignored[name]; !skip {
			out.Duplicated[name] = list
		}
	}
	return out
}

// Lookup returns the definition used for name: the single definition, or
// the first occurrence of a duplicated name.
func (d Definitions) Lookup(name string) (*Entry, bool) {
	if e, ok := d.Valid[name]; ok {
		return e, true
	}
	if list := d.Duplicated[name]; len(list) > 0 {
		return list[0], true
	}
	return nil, false
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Duplicates returns every occurrence after the first of each duplicated
// name, in deterministic order.
func (r *Registry) Duplicates() []*Entry {
	seen := make(map[string]bool)
	var out []*Entry
	for _, e := range r.entries() {
		if seen[e.Name] {
			out = append(out, e)
			continue
		}
		seen[e.Name] = true
	}
	return out
}
