package match

// EventType mirrors the combat log type enumeration carried on the wire.
type EventType int32

const (
	Damage EventType = iota
	Heal
	ModifierAdd
	ModifierRemove
	Death
	Ability
	Item
	Location
	Gold
	GameState
	XP
	Purchase
	Buyback
	AbilityTrigger
	PlayerStats
	MultiKill
	KillStreak
	TeamBuildingKill
	FirstBlood
	ModifierStackEvent
	NeutralCampStack
	PickupRune
	RevealedInvisible
	HeroSaved
	ManaRestored
	HeroLevelUp
	BottleHealAlly
	EndgameStats
	InterruptChannel
	AlliedGold
	AegisTaken
	ManaDamage
	PhysicalDamagePrevented
	UnitSummoned
	AttackEvade
)

// UnknownName is emitted when an enum value falls outside the known range.
// Entries are never dropped over an unrecognized value.
const UnknownName = "UNKNOWN"

var eventTypeNames = map[EventType]string{
	Damage:                  "DAMAGE",
	Heal:                    "HEAL",
	ModifierAdd:             "MODIFIER_ADD",
	ModifierRemove:          "MODIFIER_REMOVE",
	Death:                   "DEATH",
	Ability:                 "ABILITY",
	Item:                    "ITEM",
	Location:                "LOCATION",
	Gold:                    "GOLD",
	GameState:               "GAME_STATE",
	XP:                      "XP",
	Purchase:                "PURCHASE",
	Buyback:                 "BUYBACK",
	AbilityTrigger:          "ABILITY_TRIGGER",
	PlayerStats:             "PLAYER_STATS",
	MultiKill:               "MULTI_KILL",
	KillStreak:              "KILL_STREAK",
	TeamBuildingKill:        "TEAM_BUILDING_KILL",
	FirstBlood:              "FIRST_BLOOD",
	ModifierStackEvent:      "MODIFIER_STACK_EVENT",
	NeutralCampStack:        "NEUTRAL_CAMP_STACK",
	PickupRune:              "PICKUP_RUNE",
	RevealedInvisible:       "REVEALED_INVISIBLE",
	HeroSaved:               "HERO_SAVED",
	ManaRestored:            "MANA_RESTORED",
	HeroLevelUp:             "HERO_LEVELUP",
	BottleHealAlly:          "BOTTLE_HEAL_ALLY",
	EndgameStats:            "ENDGAME_STATS",
	InterruptChannel:        "INTERRUPT_CHANNEL",
	AlliedGold:              "ALLIED_GOLD",
	AegisTaken:              "AEGIS_TAKEN",
	ManaDamage:              "MANA_DAMAGE",
	PhysicalDamagePrevented: "PHYSICAL_DAMAGE_PREVENTED",
	UnitSummoned:            "UNIT_SUMMONED",
	AttackEvade:             "ATTACK_EVADE",
}

func (t EventType) String() string {
	name, found := eventTypeNames[t]
	if !found {
		return UnknownName
	}

	return name
}
