package discovery

// wordList maps every possible first octet (0-255) to a short, memorable,
// DOS-flavored token. The position in the table is the byte value, so the
// table order is part of the code format and must never be reshuffled.
var wordList = [256]string{
	"ACID", "APEX", "ATOM", "AMMO", "ARCH", "ALTO", "ANTE", "AXEL",
	"BOLT", "BYTE", "BUZZ", "BASS", "BETA", "BLIP", "BOMB", "BOSS",
	"BRAG", "BREW", "CAMP", "CART", "CHIP", "CLAW", "CODE", "COIL",
	"COIN", "CONE", "CORE", "CRAB", "CREW", "CUBE", "CULT", "CYAN",
	"DART", "DASH", "DATA", "DAWN", "DECK", "DEMO", "DENT", "DESK",
	"DIAL", "DICE", "DISK", "DOCK", "DOOM", "DOSE", "DRAW", "DRUM",
	"DUCK", "DUEL", "DUNE", "DUSK", "DUST", "ECHO", "EDGE", "EPIC",
	"EXIT", "FANG", "FARM", "FERN", "FILE", "FIRE", "FISH", "FLAG",
	"FLEX", "FLIP", "FOAM", "FONT", "FORT", "FROG", "FUEL", "FUSE",
	"GATE", "GEAR", "GLOW", "GOLD", "GONG", "GRID", "GRIT", "GULF",
	"HALO", "HAWK", "HAZE", "HERO", "HIVE", "HOOD", "HORN", "HUSK",
	"ICON", "IRIS", "IRON", "JADE", "JAZZ", "JEEP", "JOLT", "JUMP",
	"JUNK", "KEEP", "KELP", "KICK", "KILN", "KING", "KITE", "KNOB",
	"LAMP", "LAVA", "LEAF", "LENS", "LIME", "LINK", "LION", "LOCK",
	"LOOP", "LOOT", "LUNA", "MAGE", "MAZE", "MECH", "MENU", "MESA",
	"MINT", "MODE", "MOON", "MOSS", "MOTH", "NEON", "NEST", "NODE",
	"NOVA", "OATH", "OGRE", "ONYX", "OPAL", "ORCA", "OVAL", "OXEN",
	"PAGE", "PALM", "PAWN", "PEAK", "PERK", "PINE", "PING", "PLUG",
	"POND", "PORT", "PUCK", "PUMP", "PYRE", "QUAD", "QUIZ", "RAFT",
	"RAID", "RAIL", "RAMP", "RANK", "RAVE", "REEF", "RIFT", "RING",
	"ROAD", "ROCK", "ROOK", "ROOT", "ROPE", "RUBY", "RUNE", "RUSH",
	"RUST", "SAGE", "SAIL", "SAND", "SCAN", "SEAL", "SEED", "SHIP",
	"SILO", "SKIP", "SLAB", "SLED", "SNOW", "SONG", "SPAR", "SPIN",
	"STAR", "STEM", "SUIT", "SURF", "SWAN", "SWAY", "SYNC", "TANK",
	"TAPE", "TASK", "TEAM", "TECH", "TENT", "THAW", "TIDE", "TILE",
	"TIME", "TOAD", "TOMB", "TONE", "TOOL", "TRAP", "TREE", "TRIM",
	"TUBE", "TURF", "TWIN", "UNIT", "VALE", "VAST", "VEIL", "VENT",
	"VERB", "VEST", "VIAL", "VINE", "VOID", "VOLT", "WAKE", "WAND",
	"WARP", "WASP", "WAVE", "WELD", "WHIP", "WICK", "WIND", "WING",
	"WIRE", "WISP", "WOLF", "WOOD", "WORM", "YARD", "YARN", "YETI",
	"ZEAL", "ZERO", "ZEST", "ZINC", "ZONE", "ZOOM", "ACRE", "BARD",
	"BEAM", "BELL", "BLUR", "BONE", "BOOK", "CAVE", "CITY", "CLAY",
}

// wordIndex is the reverse lookup, word to first octet.
var wordIndex = make(map[string]int, len(wordList))

func init() {
	for i, w := range wordList {
		wordIndex[w] = i
	}
}
