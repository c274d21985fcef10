package game

import (
	"fmt"
	"strings"
)

// Validate checks cross-reference integrity, expression syntax and value
// sanity over an indexed Game. It returns every problem found; an empty
// slice means the package is playable.
func Validate(g *Game) []error {
	v := &validator{g: g}

	v.checkStart()
	v.checkMeters()
	v.checkFlags()
	v.checkTime()
	v.checkWorld()
	v.checkItems()
	v.checkClothing()
	v.checkCharacters()
	v.checkModifiers()
	v.checkNodes()
	v.checkEvents()
	v.checkArcs()
	v.checkActions()

	return v.errs
}

type validator struct {
	g    *Game
	errs []error
}

func (v *validator) errf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

// expr compiles an author expression, reporting failures against where.
func (v *validator) expr(src, where string) {
	if src == "" {
		return
	}
	if _, err := v.g.CompileExpr(src); err != nil {
		v.errf("%s: %v", where, err)
	}
}

func (v *validator) exprs(srcs []string, where string) {
	for _, s := range srcs {
		v.expr(s, where)
	}
}

func (v *validator) checkStart() {
	s := v.g.Start
	if v.g.LocationByID(s.Location) == nil {
		v.errf("start.location %q is not a known location", s.Location)
	}
	if v.g.NodeByID(s.Node) == nil {
		v.errf("start.node %q is not a known node", s.Node)
	}
	if s.Zone != "" && v.g.ZoneByID(s.Zone) == nil {
		v.errf("start.zone %q is not a known zone", s.Zone)
	}
	if _, err := ParseHHMM(s.Time); err != nil {
		v.errf("start.time: %v", err)
	}
	if s.Day < 1 {
		v.errf("start.day must be >= 1, got %d", s.Day)
	}
}

func (v *validator) checkMeters() {
	check := func(owner, id string, m *Meter) {
		if m.Max <= m.Min {
			v.errf("meter %s.%s: max (%v) must exceed min (%v)", owner, id, m.Max, m.Min)
		}
		if m.Default < m.Min || m.Default > m.Max {
			v.errf("meter %s.%s: default %v outside [%v,%v]", owner, id, m.Default, m.Min, m.Max)
		}
		if m.DeltaCapPerTurn < 0 {
			v.errf("meter %s.%s: delta_cap_per_turn must be >= 0", owner, id)
		}
		if m.RequiresGate != "" && owner != "character_template" {
			v.gateRef(m.RequiresGate, owner, fmt.Sprintf("meter %s.%s.requires_gate", owner, id))
		}
	}
	for id, m := range v.g.Meters.Player {
		check("player", id, m)
	}
	for id, m := range v.g.Meters.Template {
		check("character_template", id, m)
	}
	for _, c := range v.g.Characters {
		for id, m := range c.Meters {
			check(c.ID, id, m)
		}
	}
}

// gateRef checks that a "char.gate" (or bare gate on defaultOwner) reference
// resolves to a declared gate.
func (v *validator) gateRef(ref, defaultOwner, where string) {
	charID, gateID := SplitGateRef(ref, defaultOwner)
	c := v.g.CharacterByID(charID)
	if c == nil {
		v.errf("%s: unknown character %q", where, charID)
		return
	}
	if c.GateByID(gateID) == nil {
		v.errf("%s: character %s has no gate %q", where, charID, gateID)
	}
}

func (v *validator) checkFlags() {
	for key, f := range v.g.Flags {
		switch f.Type {
		case "bool", "number", "string", "":
		default:
			v.errf("flag %q: unknown type %q", key, f.Type)
		}
		if f.Default != nil && !flagValueMatches(f, f.Default) {
			v.errf("flag %q: default %v does not match type %q", key, f.Default, f.Type)
		}
		if f.RequiresGate != "" {
			v.gateRef(f.RequiresGate, "", "flag "+key+".requires_gate")
		}
	}
}

// flagValueMatches reports whether val is assignable to the flag.
func flagValueMatches(f *FlagDef, val any) bool {
	okType := false
	switch f.Type {
	case "bool":
		_, okType = val.(bool)
	case "number":
		switch val.(type) {
		case int, int64, float64:
			okType = true
		}
	case "string":
		_, okType = val.(string)
	case "":
		okType = true
	}
	if !okType {
		return false
	}
	if len(f.AllowedValues) > 0 {
		for _, a := range f.AllowedValues {
			if fmt.Sprint(a) == fmt.Sprint(val) {
				return true
			}
		}
		return false
	}
	return true
}

// FlagValueAllowed is the runtime form of flag validation used by the
// effect resolver for flag_set.
func (g *Game) FlagValueAllowed(key string, val any) bool {
	f, ok := g.Flags[key]
	if !ok {
		// undeclared flags are untyped
		return true
	}
	return flagValueMatches(f, val)
}

func (v *validator) checkTime() {
	for _, w := range v.g.Time.Slots {
		if _, err := ParseHHMM(w.Start); err != nil {
			v.errf("time slot %q: %v", w.Name, err)
		}
		if _, err := ParseHHMM(w.End); err != nil {
			v.errf("time slot %q: %v", w.Name, err)
		}
	}
	if len(v.g.Time.WeekDays) > 0 && v.g.Time.StartWeekday != "" {
		found := false
		for _, w := range v.g.Time.WeekDays {
			if w == v.g.Time.StartWeekday {
				found = true
			}
		}
		if !found {
			v.errf("time.start_weekday %q not in week_days", v.g.Time.StartWeekday)
		}
	}
	for name, minutes := range v.g.Time.Categories {
		if minutes < 0 {
			v.errf("time category %q: negative minutes", name)
		}
	}
}

func (v *validator) timeCategory(name, where string) {
	if name == "" {
		return
	}
	if _, ok := v.g.Time.Categories[name]; !ok {
		v.errf("%s: unknown time category %q", where, name)
	}
}

func (v *validator) checkWorld() {
	for _, z := range v.g.Zones {
		v.expr(z.UnlockWhen, "zone "+z.ID+".unlock_when")
		v.exprs(z.DiscoveryConditions, "zone "+z.ID+".discovery_conditions")
		for _, zc := range z.Connections {
			if v.g.ZoneByID(zc.To) == nil {
				v.errf("zone %s: connection to unknown zone %q", z.ID, zc.To)
			}
			for _, m := range zc.Methods {
				if _, ok := v.g.Movement.Methods[m]; !ok {
					v.errf("zone %s → %s: unknown travel method %q", z.ID, zc.To, m)
				}
			}
		}
		for _, name := range append(append([]string{}, z.Entrances...), z.Exits...) {
			if v.g.LocationByID(name) == nil {
				v.errf("zone %s: entry/exit %q is not a known location", z.ID, name)
			}
		}
		for _, l := range z.Locations {
			v.checkLocation(z, l)
		}
	}
	for name := range v.g.Movement.Methods {
		m := v.g.Movement.Methods[name]
		if m.Category != "" {
			v.timeCategory(m.Category, "travel method "+name)
		}
		if m.Speed < 0 {
			v.errf("travel method %s: negative speed", name)
		}
	}
}

func (v *validator) checkLocation(z *Zone, l *Location) {
	switch l.Privacy {
	case PrivacyNone, PrivacyLow, PrivacyMedium, PrivacyHigh:
	default:
		v.errf("location %s: unknown privacy %q", l.ID, l.Privacy)
	}
	v.expr(l.UnlockWhen, "location "+l.ID+".unlock_when")
	v.exprs(l.DiscoveryConditions, "location "+l.ID+".discovery_conditions")
	for _, c := range l.Connections {
		dest := v.g.LocationByID(c.To)
		if dest == nil {
			v.errf("location %s: connection %q to unknown location %q", l.ID, c.Direction, c.To)
			continue
		}
		if dest.Zone != z.ID {
			v.errf("location %s: connection %q crosses zones (use travel)", l.ID, c.Direction)
		}
		if c.Distance != "" {
			if _, ok := v.g.Movement.Local.DistanceModifiers[c.Distance]; !ok {
				v.errf("location %s: connection %q names unknown distance %q", l.ID, c.Direction, c.Distance)
			}
		}
	}
	for itemID := range l.Items {
		v.itemOrOutfit(itemID, "location "+l.ID+" stock")
	}
}

func (v *validator) checkItems() {
	for _, it := range v.g.Items {
		v.effects(it.OnGet, "item "+it.ID+".on_get")
		v.effects(it.OnLost, "item "+it.ID+".on_lost")
		v.effects(it.OnGive, "item "+it.ID+".on_give")
		v.effects(it.OnUse, "item "+it.ID+".on_use")
	}
}

func (v *validator) checkClothing() {
	for _, ci := range v.g.ClothingItems {
		if len(ci.Occupies) == 0 {
			v.errf("clothing item %s occupies no slots", ci.ID)
		}
		for _, s := range append(append([]string{}, ci.Occupies...), ci.Conceals...) {
			if !v.g.KnownSlot(s) {
				v.errf("clothing item %s: slot %q not in wardrobe.slot_order", ci.ID, s)
			}
		}
		v.expr(ci.UnlockWhen, "clothing item "+ci.ID+".unlock_when")
	}
	for _, o := range v.g.Outfits {
		if len(o.Items) == 0 {
			v.errf("outfit %s has no items", o.ID)
		}
		for _, id := range o.Items {
			if v.g.ClothingByID(id) == nil {
				v.errf("outfit %s: member %q is not a known clothing item", o.ID, id)
			}
		}
	}
}

func (v *validator) checkCharacters() {
	for _, c := range v.g.Characters {
		for _, gdef := range c.Gates {
			v.expr(gdef.When, "character "+c.ID+" gate "+gdef.ID+".when")
			v.exprs(gdef.WhenAny, "character "+c.ID+" gate "+gdef.ID+".when_any")
			v.exprs(gdef.WhenAll, "character "+c.ID+" gate "+gdef.ID+".when_all")
			if gdef.When == "" && len(gdef.WhenAny) == 0 && len(gdef.WhenAll) == 0 {
				v.errf("character %s gate %s has no condition", c.ID, gdef.ID)
			}
		}
		for i, r := range c.Schedule {
			v.expr(r.When, fmt.Sprintf("character %s schedule[%d].when", c.ID, i))
			if v.g.LocationByID(r.Location) == nil {
				v.errf("character %s schedule[%d]: unknown location %q", c.ID, i, r.Location)
			}
		}
		if c.Location != "" && v.g.LocationByID(c.Location) == nil {
			v.errf("character %s: unknown starting location %q", c.ID, c.Location)
		}
		for id := range c.Inventory {
			if v.g.ItemByID(id) == nil {
				v.errf("character %s: starting item %q unknown", c.ID, id)
			}
		}
		for _, id := range c.ClothingItems {
			if v.g.ClothingByID(id) == nil {
				v.errf("character %s: starting clothing %q unknown", c.ID, id)
			}
		}
		owned := make(map[string]bool, len(c.Outfits))
		for _, id := range c.Outfits {
			owned[id] = true
			if v.g.OutfitByID(id) == nil {
				v.errf("character %s: starting outfit %q unknown", c.ID, id)
			}
		}
		if c.WearOutfit != "" && !owned[c.WearOutfit] {
			v.errf("character %s: wear_outfit %q not among starting outfits", c.ID, c.WearOutfit)
		}
	}
}

func (v *validator) checkModifiers() {
	for _, m := range v.g.Modifiers {
		v.expr(m.When, "modifier "+m.ID+".when")
		v.effects(m.EntryEffects, "modifier "+m.ID+".entry_effects")
		v.effects(m.ExitEffects, "modifier "+m.ID+".exit_effects")
		switch m.Stacking {
		case StackHighest, StackAll:
		default:
			v.errf("modifier %s: unknown stacking %q", m.ID, m.Stacking)
		}
		for _, x := range m.Exclusions {
			if v.g.ModifierByID(x) == nil {
				v.errf("modifier %s: exclusion %q unknown", m.ID, x)
			}
		}
		for meterID, r := range m.ClampMeters {
			if r.Max < r.Min {
				v.errf("modifier %s: clamp_meters.%s max < min", m.ID, meterID)
			}
		}
		for _, ref := range append(append([]string{}, m.Safety.DisallowGates...), m.Safety.AllowGates...) {
			v.gateClampRef(ref, "modifier "+m.ID+".safety")
		}
	}
}

// gateClampRef accepts a bare gate id (clamping it on every character that
// declares it) or a qualified "char.gate".
func (v *validator) gateClampRef(ref, where string) {
	if i := strings.IndexByte(ref, '.'); i > 0 {
		v.gateRef(ref, "", where)
		return
	}
	for _, c := range v.g.Characters {
		if c.GateByID(ref) != nil {
			return
		}
	}
	v.errf("%s: no character declares gate %q", where, ref)
}

func (v *validator) checkNodes() {
	for _, n := range v.g.Nodes {
		switch n.Type {
		case NodeScene, NodeHub, NodeEncounter, NodeEnding:
		default:
			v.errf("node %s: unknown type %q", n.ID, n.Type)
		}
		v.exprs(n.Preconditions, "node "+n.ID+".preconditions")
		v.effects(n.EntryEffects, "node "+n.ID+".entry_effects")
		v.effects(n.ExitEffects, "node "+n.ID+".exit_effects")
		for _, t := range n.Transitions {
			v.expr(t.When, "node "+n.ID+" transition to "+t.To)
			if v.g.NodeByID(t.To) == nil {
				v.errf("node %s: transition to unknown node %q", n.ID, t.To)
			}
		}
		for _, ch := range append(append([]*Choice{}, n.Choices...), n.DynamicChoices...) {
			v.checkChoice(ch, "node "+n.ID)
		}
		if n.TimeBehavior != nil {
			for kind, cat := range n.TimeBehavior.Categories {
				v.timeCategory(cat, "node "+n.ID+" time_behavior."+kind)
			}
		}
	}
}

func (v *validator) checkChoice(ch *Choice, where string) {
	if ch.ID == "" {
		v.errf("%s: choice with empty id", where)
	}
	v.exprs(ch.Conditions, where+" choice "+ch.ID+".conditions")
	v.effects(ch.OnSelect, where+" choice "+ch.ID+".on_select")
	if ch.Goto != "" && v.g.NodeByID(ch.Goto) == nil {
		v.errf("%s choice %s: goto unknown node %q", where, ch.ID, ch.Goto)
	}
	v.timeCategory(ch.TimeCategory, where+" choice "+ch.ID)
}

func (v *validator) checkEvents() {
	for _, e := range v.g.Events {
		v.expr(e.When, "event "+e.ID+".when")
		v.effects(e.Effects, "event "+e.ID+".effects")
		if e.Location != "" && v.g.LocationByID(e.Location) == nil {
			v.errf("event %s: unknown location %q", e.ID, e.Location)
		}
		if e.Random && e.Weight <= 0 {
			v.errf("event %s: random events need weight > 0", e.ID)
		}
		if e.Goto != "" && v.g.NodeByID(e.Goto) == nil {
			v.errf("event %s: goto unknown node %q", e.ID, e.Goto)
		}
		for _, ch := range e.Choices {
			v.checkChoice(ch, "event "+e.ID)
		}
		if e.Cooldown < 0 {
			v.errf("event %s: negative cooldown", e.ID)
		}
	}
}

func (v *validator) checkArcs() {
	for _, a := range v.g.Arcs {
		if len(a.Stages) == 0 {
			v.errf("arc %s has no stages", a.ID)
		}
		if a.Character != "" && v.g.CharacterByID(a.Character) == nil {
			v.errf("arc %s: unknown character %q", a.ID, a.Character)
		}
		seen := make(map[string]bool, len(a.Stages))
		for i, s := range a.Stages {
			if seen[s.ID] {
				v.errf("arc %s: duplicate stage id %q", a.ID, s.ID)
			}
			seen[s.ID] = true
			if i > 0 && s.AdvanceWhen == "" {
				v.errf("arc %s stage %s: advance_when required after the first stage", a.ID, s.ID)
			}
			v.expr(s.AdvanceWhen, "arc "+a.ID+" stage "+s.ID+".advance_when")
			v.effects(s.OnEnter, "arc "+a.ID+" stage "+s.ID+".on_enter")
			v.effects(s.OnAdvance, "arc "+a.ID+" stage "+s.ID+".on_advance")
		}
	}
}

func (v *validator) checkActions() {
	for _, a := range v.g.Actions {
		v.exprs(a.Conditions, "action "+a.ID+".conditions")
		v.effects(a.Effects, "action "+a.ID+".effects")
		v.timeCategory(a.TimeCategory, "action "+a.ID)
	}
}

// effects walks an effect batch recursively, checking guard expressions and
// the ids each kind references.
func (v *validator) effects(batch []*Effect, where string) {
	for i, e := range batch {
		at := fmt.Sprintf("%s[%d]", where, i)
		v.expr(e.When, at+".when")
		switch e.Type {
		case EffMeterChange:
			switch e.Op {
			case "add", "subtract", "set", "multiply", "divide":
			default:
				v.errf("%s: meter_change op %q unknown", at, e.Op)
			}
			if _, ok := e.NumberValue(); !ok {
				v.errf("%s: meter_change value must be a number", at)
			}
		case EffFlagSet:
			if e.Key == "" {
				v.errf("%s: flag_set needs a key", at)
			}
		case EffInventoryAdd, EffInventoryRemove:
			v.itemOrOutfit(e.Item, at)
		case EffInventoryTake, EffInventoryDrop:
			if v.g.ItemByID(e.Item) == nil {
				v.errf("%s: unknown item %q", at, e.Item)
			}
		case EffInventoryGive:
			v.itemOrOutfit(e.Item, at)
		case EffPurchase, EffSell:
			v.itemOrOutfit(e.Item, at)
		case EffClothingPutOn, EffClothingTakeOff, EffClothingState:
			if v.g.ClothingByID(e.Item) == nil {
				v.errf("%s: unknown clothing item %q", at, e.Item)
			}
			if e.Type == EffClothingState && !ValidClothingState(e.State) {
				v.errf("%s: unknown clothing state %q", at, e.State)
			}
		case EffClothingSlot:
			if !v.g.KnownSlot(e.Slot) {
				v.errf("%s: unknown slot %q", at, e.Slot)
			}
			if !ValidClothingState(e.State) {
				v.errf("%s: unknown clothing state %q", at, e.State)
			}
		case EffOutfitPutOn:
			if v.g.OutfitByID(e.Outfit) == nil {
				v.errf("%s: unknown outfit %q", at, e.Outfit)
			}
		case EffOutfitTakeOff:
		case EffMove:
			if e.Direction == "" {
				v.errf("%s: move needs a direction", at)
			}
		case EffMoveTo, EffTravelTo:
			if v.g.LocationByID(e.Location) == nil {
				v.errf("%s: unknown location %q", at, e.Location)
			}
			if e.Type == EffTravelTo && e.Method != "" {
				if _, ok := v.g.Movement.Methods[e.Method]; !ok {
					v.errf("%s: unknown travel method %q", at, e.Method)
				}
			}
		case EffAdvanceTime:
			if e.Minutes <= 0 {
				v.errf("%s: advance_time needs positive minutes", at)
			}
		case EffAdvanceTimeSlot:
		case EffApplyModifier, EffRemoveModifier:
			if v.g.ModifierByID(e.Modifier) == nil {
				v.errf("%s: unknown modifier %q", at, e.Modifier)
			}
		case EffUnlock, EffLock:
			v.lockTargets(e, at)
		case EffGoto:
			if v.g.NodeByID(e.Node) == nil {
				v.errf("%s: goto unknown node %q", at, e.Node)
			}
		case EffConditional:
			if e.When == "" {
				v.errf("%s: conditional needs a when", at)
			}
			v.effects(e.Then, at+".then")
			v.effects(e.Otherwise, at+".otherwise")
		case EffRandom:
			if len(e.Choices) == 0 {
				v.errf("%s: random needs choices", at)
			}
			for j, c := range e.Choices {
				if c.Weight <= 0 {
					v.errf("%s.choices[%d]: weight must be positive", at, j)
				}
				v.effects(c.Effects, fmt.Sprintf("%s.choices[%d]", at, j))
			}
		default:
			v.errf("%s: unknown effect type %q", at, e.Type)
		}
	}
}

func (v *validator) itemOrOutfit(id, at string) {
	if v.g.ItemByID(id) == nil && v.g.ClothingByID(id) == nil && v.g.OutfitByID(id) == nil {
		v.errf("%s: %q is not an item, clothing item or outfit", at, id)
	}
}

func (v *validator) lockTargets(e *Effect, at string) {
	if len(e.IDs) == 0 {
		v.errf("%s: %s needs ids", at, e.Type)
		return
	}
	for _, id := range e.IDs {
		var known bool
		switch e.Category {
		case CatLocations:
			known = v.g.LocationByID(id) != nil
		case CatZones:
			known = v.g.ZoneByID(id) != nil
		case CatItems:
			known = v.g.ItemByID(id) != nil
		case CatClothing:
			known = v.g.ClothingByID(id) != nil
		case CatOutfits:
			known = v.g.OutfitByID(id) != nil
		case CatActions:
			known = v.g.ActionByID(id) != nil
		case CatEndings:
			n := v.g.NodeByID(id)
			known = n != nil && n.IsEnding()
		default:
			v.errf("%s: unknown category %q", at, e.Category)
			return
		}
		if !known {
			v.errf("%s: %s id %q unknown", at, e.Category, id)
		}
	}
}
