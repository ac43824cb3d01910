// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package object models a key-like entity (an SSH key, a PGP key, a stored
// credential) together with the display fields derived from it.
//
// An Object holds primary fields (id, label) and derived ones (tag,
// identifier from the id; markup, nickname from the label). Derived fields
// follow their primary field until they are written directly, after which
// they keep the written value for the lifetime of the object. Every change
// of a stored value is announced on the Notify signal.
//
// Objects are owned by a Context (see internal/registry). Everything else
// refers to them through weak references that clear when the object is
// disposed.
package object

import (
	"fmt"
	"slices"

	"github.com/toeirei/keyview/internal/logging"
	"github.com/toeirei/keyview/internal/signal"
	"github.com/toeirei/keyview/internal/weakref"
)

// DefaultIcon is the icon name of a freshly created object.
const DefaultIcon = "image-missing"

// Source is the backend an object was loaded from.
type Source interface {
	weakref.Anchored
	Name() string
}

// Context is the registry that owns an object.
type Context interface {
	weakref.Anchored
	// RemoveObject deregisters o and must clear o's context before
	// returning.
	RemoveObject(o *Object)
}

// Object is a key-like entity. It is not safe for concurrent use; all
// mutation happens on the goroutine driving the owning Context.
type Object struct {
	anchor weakref.Anchor
	kind   Kind

	id          ID
	tag         Tag
	tagExplicit bool

	source    weakref.Ref[Source]
	context   weakref.Ref[Context]
	preferred weakref.Ref[*Object]

	label              string
	markup             string
	markupExplicit     bool
	nickname           string
	nicknameExplicit   bool
	identifier         string
	identifierExplicit bool
	icon               string

	location Location
	usage    Usage
	flags    Flags

	notifier signal.Signal[Property]
	frozen   int
	pending  []Property
	disposed bool
}

// Option configures an Object in New.
type Option func(*Object)

// WithKind sets the concrete kind of the object.
func WithKind(k Kind) Option { return func(o *Object) { o.kind = k } }

// WithID sets the id (and so the derived tag and identifier).
func WithID(id ID) Option { return func(o *Object) { o.SetID(id) } }

// WithLabel sets the label (and so the derived markup and nickname).
func WithLabel(label string) Option { return func(o *Object) { o.SetLabel(label) } }

// WithLocation sets the location.
func WithLocation(l Location) Option { return func(o *Object) { o.SetLocation(l) } }

// WithUsage sets the usage.
func WithUsage(u Usage) Option { return func(o *Object) { o.SetUsage(u) } }

// WithFlags sets the flags.
func WithFlags(f Flags) Option { return func(o *Object) { o.SetFlags(f) } }

// WithSource sets the source.
func WithSource(s Source) Option { return func(o *Object) { o.SetSource(s) } }

// New creates an object with default fields and applies opts in order.
func New(opts ...Option) *Object {
	o := &Object{
		icon:     DefaultIcon,
		location: LocationInvalid,
		usage:    UsageNone,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Object) String() string {
	if o == nil {
		return "<nil object>"
	}
	if o.id == "" {
		return fmt.Sprintf("object(%q)", o.label)
	}
	return string(o.id)
}

// valid guards getters: a nil receiver is a caller bug that is logged and
// answered with a zero value.
func (o *Object) valid(op string) bool {
	if o == nil {
		logging.Warnf("object: %s called on nil object", op)
		return false
	}
	return true
}

// writable guards setters, which are no-ops on nil or disposed objects.
func (o *Object) writable(op string) bool {
	if !o.valid(op) {
		return false
	}
	if o.disposed {
		logging.Warnf("object: %s called on disposed object %s", op, o)
		return false
	}
	return true
}

// WeakAnchor implements weakref.Anchored.
func (o *Object) WeakAnchor() *weakref.Anchor {
	if o == nil {
		return nil
	}
	return &o.anchor
}

// Notify returns the signal carrying property change notifications.
func (o *Object) Notify() *signal.Signal[Property] {
	if !o.valid("Notify") {
		return nil
	}
	return &o.notifier
}

func (o *Object) notify(p Property) {
	if o.frozen > 0 {
		if !slices.Contains(o.pending, p) {
			o.pending = append(o.pending, p)
		}
		return
	}
	o.notifier.Emit(p)
}

func (o *Object) freezeNotify() {
	o.frozen++
}

func (o *Object) thawNotify() {
	o.frozen--
	if o.frozen > 0 {
		return
	}
	pending := o.pending
	o.pending = nil
	for _, p := range pending {
		o.notifier.Emit(p)
	}
}

// Update runs fn with notifications held back; each property changed inside
// fn is announced once, in the order first changed, after fn returns.
func (o *Object) Update(fn func(*Object)) {
	if !o.writable("Update") {
		return
	}
	o.freezeNotify()
	defer o.thawNotify()
	fn(o)
}

// Kind returns the concrete kind given at creation.
func (o *Object) Kind() Kind {
	if !o.valid("Kind") {
		return ""
	}
	return o.kind
}

// ID returns the object's id.
func (o *Object) ID() ID {
	if !o.valid("ID") {
		return ""
	}
	return o.id
}

// SetID sets the id and recomputes the tag and identifier unless they were
// set explicitly.
func (o *Object) SetID(id ID) {
	if !o.writable("SetID") || id == o.id {
		return
	}
	o.id = id
	o.freezeNotify()
	o.notify(PropID)
	o.recalculateID()
	o.thawNotify()
}

func (o *Object) recalculateID() {
	tag, identifier := o.id.Split()
	if !o.tagExplicit && tag != o.tag {
		o.tag = tag
		o.notify(PropTag)
	}
	if !o.identifierExplicit && setString(&o.identifier, identifier) {
		o.notify(PropIdentifier)
	}
}

// Tag returns the type tag.
func (o *Object) Tag() Tag {
	if !o.valid("Tag") {
		return ""
	}
	return o.tag
}

// SetTag sets the tag explicitly; later id changes no longer touch it.
func (o *Object) SetTag(tag Tag) {
	if !o.writable("SetTag") {
		return
	}
	o.tagExplicit = true
	if tag != o.tag {
		o.tag = tag
		o.notify(PropTag)
	}
}

// Label returns the display label.
func (o *Object) Label() string {
	if !o.valid("Label") {
		return ""
	}
	return o.label
}

// SetLabel sets the label and recomputes markup and nickname unless they
// were set explicitly.
func (o *Object) SetLabel(label string) {
	if !o.writable("SetLabel") || !setString(&o.label, label) {
		return
	}
	o.freezeNotify()
	o.notify(PropLabel)
	o.recalculateLabel()
	o.thawNotify()
}

func (o *Object) recalculateLabel() {
	if !o.markupExplicit && setString(&o.markup, escapeMarkup(o.label)) {
		o.notify(PropMarkup)
	}
	if !o.nicknameExplicit && setString(&o.nickname, o.label) {
		o.notify(PropNickname)
	}
}

// Markup returns the label as escaped markup, or the explicit markup.
func (o *Object) Markup() string {
	if !o.valid("Markup") {
		return ""
	}
	return o.markup
}

// SetMarkup sets the markup explicitly.
func (o *Object) SetMarkup(markup string) {
	if !o.writable("SetMarkup") {
		return
	}
	o.markupExplicit = true
	if setString(&o.markup, markup) {
		o.notify(PropMarkup)
	}
}

// Nickname returns the short name.
func (o *Object) Nickname() string {
	if !o.valid("Nickname") {
		return ""
	}
	return o.nickname
}

// SetNickname sets the nickname explicitly.
func (o *Object) SetNickname(nickname string) {
	if !o.writable("SetNickname") {
		return
	}
	o.nicknameExplicit = true
	if setString(&o.nickname, nickname) {
		o.notify(PropNickname)
	}
}

// Identifier returns the displayable id.
func (o *Object) Identifier() string {
	if !o.valid("Identifier") {
		return ""
	}
	return o.identifier
}

// SetIdentifier sets the identifier explicitly.
func (o *Object) SetIdentifier(identifier string) {
	if !o.writable("SetIdentifier") {
		return
	}
	o.identifierExplicit = true
	if setString(&o.identifier, identifier) {
		o.notify(PropIdentifier)
	}
}

// Icon returns the icon name.
func (o *Object) Icon() string {
	if !o.valid("Icon") {
		return ""
	}
	return o.icon
}

// SetIcon sets the icon name.
func (o *Object) SetIcon(icon string) {
	if o.writable("SetIcon") && setString(&o.icon, icon) {
		o.notify(PropIcon)
	}
}

// Location returns where the object lives.
func (o *Object) Location() Location {
	if !o.valid("Location") {
		return LocationInvalid
	}
	return o.location
}

// SetLocation sets the location.
func (o *Object) SetLocation(l Location) {
	if o.writable("SetLocation") && l != o.location {
		o.location = l
		o.notify(PropLocation)
	}
}

// Usage returns what the object is for.
func (o *Object) Usage() Usage {
	if !o.valid("Usage") {
		return UsageNone
	}
	return o.usage
}

// SetUsage sets the usage.
func (o *Object) SetUsage(u Usage) {
	if o.writable("SetUsage") && u != o.usage {
		o.usage = u
		o.notify(PropUsage)
	}
}

// Flags returns the flag bits.
func (o *Object) Flags() Flags {
	if !o.valid("Flags") {
		return 0
	}
	return o.flags
}

// SetFlags replaces the flag bits.
func (o *Object) SetFlags(f Flags) {
	if o.writable("SetFlags") && f != o.flags {
		o.flags = f
		o.notify(PropFlags)
	}
}

// Source returns the backend the object came from, or nil.
func (o *Object) Source() Source {
	if !o.valid("Source") {
		return nil
	}
	return o.source.Get()
}

// SetSource points the weak source reference at s.
func (o *Object) SetSource(s Source) {
	if o.writable("SetSource") && o.source.Set(s) {
		o.notify(PropSource)
	}
}

// Context returns the owning registry, or nil.
func (o *Object) Context() Context {
	if !o.valid("Context") {
		return nil
	}
	return o.context.Get()
}

// SetContext points the weak context reference at c. It is called by the
// registry when the object is added or removed.
func (o *Object) SetContext(c Context) {
	if o == nil {
		logging.Warnf("object: SetContext called on nil object")
		return
	}
	if c != nil && o.disposed {
		logging.Warnf("object: SetContext called on disposed object %s", o)
		return
	}
	if o.context.Set(c) {
		o.notify(PropContext)
	}
}

// Preferred returns the object to show instead of this one, or nil.
func (o *Object) Preferred() *Object {
	if !o.valid("Preferred") {
		return nil
	}
	return o.preferred.Get()
}

// SetPreferred points the weak preferred reference at p.
func (o *Object) SetPreferred(p *Object) {
	if !o.writable("SetPreferred") {
		return
	}
	if p == o {
		logging.Warnf("object: %s cannot prefer itself", o)
		return
	}
	if o.preferred.Set(p) {
		o.notify(PropPreferred)
	}
}

// Disposed reports whether Dispose has run.
func (o *Object) Disposed() bool {
	return o == nil || o.disposed
}

// Dispose deregisters the object from its context, drops its weak
// references and finalizes it. Weak references held by others are cleared.
// Dispose is idempotent.
func (o *Object) Dispose() {
	if o == nil || o.disposed {
		return
	}
	if ctx := o.context.Get(); ctx != nil {
		ctx.RemoveObject(o)
		if o.context.IsSet() {
			panic(fmt.Sprintf("object %s: context did not release the object on removal", o))
		}
	}
	o.source.Clear()
	o.preferred.Clear()
	o.finalize()
}

func (o *Object) finalize() {
	if o.source.IsSet() || o.preferred.IsSet() || o.context.IsSet() {
		panic(fmt.Sprintf("object %s finalized while still linked to source, preferred or context", o))
	}
	o.disposed = true
	o.pending = nil
	o.notifier.Reset()
	o.anchor.Dispose()
}
