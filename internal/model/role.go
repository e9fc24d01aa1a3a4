package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DetailedRole is the roster bucket derived from class and spec
type DetailedRole string

const (
	RoleTank      DetailedRole = "TANK"
	RoleHealer    DetailedRole = "HEALER"
	RoleMeleeDPS  DetailedRole = "MELEE_DPS"
	RoleRangedDPS DetailedRole = "RANGED_DPS"
)

// Roles lists every detailed role in roster order
var Roles = []DetailedRole{RoleTank, RoleHealer, RoleMeleeDPS, RoleRangedDPS}

// Priority returns the roster sort key of the role; unknown roles sort last
func (r DetailedRole) Priority() int {
	switch r {
	case RoleTank:
		return 1
	case RoleHealer:
		return 2
	case RoleMeleeDPS:
		return 3
	case RoleRangedDPS:
		return 4
	default:
		return 99
	}
}

type classSpec struct {
	class string
	spec  string
	role  DetailedRole
}

// classSpecRoles is ordered; partial spec matching walks it top to bottom
var classSpecRoles = []classSpec{
	{"Warrior", "Arms", RoleMeleeDPS},
	{"Warrior", "Fury", RoleMeleeDPS},
	{"Warrior", "Protection", RoleTank},

	{"Paladin", "Holy", RoleHealer},
	{"Paladin", "Protection", RoleTank},
	{"Paladin", "Retribution", RoleMeleeDPS},

	{"Hunter", "Beast Mastery", RoleRangedDPS},
	{"Hunter", "Marksmanship", RoleRangedDPS},
	{"Hunter", "Survival", RoleMeleeDPS},

	{"Rogue", "Assassination", RoleMeleeDPS},
	{"Rogue", "Outlaw", RoleMeleeDPS},
	{"Rogue", "Subtlety", RoleMeleeDPS},

	{"Priest", "Discipline", RoleHealer},
	{"Priest", "Holy", RoleHealer},
	{"Priest", "Shadow", RoleRangedDPS},

	{"Shaman", "Elemental", RoleRangedDPS},
	{"Shaman", "Enhancement", RoleMeleeDPS},
	{"Shaman", "Restoration", RoleHealer},

	{"Mage", "Arcane", RoleRangedDPS},
	{"Mage", "Fire", RoleRangedDPS},
	{"Mage", "Frost", RoleRangedDPS},

	{"Warlock", "Affliction", RoleRangedDPS},
	{"Warlock", "Demonology", RoleRangedDPS},
	{"Warlock", "Destruction", RoleRangedDPS},

	{"Monk", "Brewmaster", RoleTank},
	{"Monk", "Mistweaver", RoleHealer},
	{"Monk", "Windwalker", RoleMeleeDPS},

	{"Druid", "Balance", RoleRangedDPS},
	{"Druid", "Feral", RoleMeleeDPS},
	{"Druid", "Guardian", RoleTank},
	{"Druid", "Restoration", RoleHealer},

	{"Demon Hunter", "Havoc", RoleMeleeDPS},
	{"Demon Hunter", "Vengeance", RoleTank},

	{"Death Knight", "Blood", RoleTank},
	{"Death Knight", "Frost", RoleMeleeDPS},
	{"Death Knight", "Unholy", RoleMeleeDPS},

	{"Evoker", "Devastation", RoleRangedDPS},
	{"Evoker", "Preservation", RoleHealer},
	{"Evoker", "Augmentation", RoleRangedDPS},
}

// DetailedRoleFor maps a class and spec to a roster role.
// Input is title-cased first; a spec that contains a known spec name of the
// same class also matches. Anything else is MELEE_DPS.
func DetailedRoleFor(class, spec string) DetailedRole {
	classKey := titleCase(class)
	specKey := titleCase(spec)

	for _, cs := range classSpecRoles {
		if cs.class == classKey && cs.spec == specKey {
			return cs.role
		}
	}

	if classKey != "" && specKey != "" {
		for _, cs := range classSpecRoles {
			if strings.EqualFold(cs.class, classKey) && strings.Contains(strings.ToLower(specKey), strings.ToLower(cs.spec)) {
				return cs.role
			}
		}
	}

	return RoleMeleeDPS
}

// ArmorType is the armor material worn by a class
type ArmorType string

const (
	ArmorPlate   ArmorType = "plate"
	ArmorMail    ArmorType = "mail"
	ArmorLeather ArmorType = "leather"
	ArmorCloth   ArmorType = "cloth"
	ArmorUnknown ArmorType = "unknown"
)

var classArmor = map[string]ArmorType{
	"Warrior":      ArmorPlate,
	"Paladin":      ArmorPlate,
	"Death Knight": ArmorPlate,
	"Hunter":       ArmorMail,
	"Shaman":       ArmorMail,
	"Evoker":       ArmorMail,
	"Rogue":        ArmorLeather,
	"Monk":         ArmorLeather,
	"Druid":        ArmorLeather,
	"Demon Hunter": ArmorLeather,
	"Priest":       ArmorCloth,
	"Mage":         ArmorCloth,
	"Warlock":      ArmorCloth,
}

// ArmorTypeFor returns the armor material of a class
func ArmorTypeFor(class string) ArmorType {
	if a, ok := classArmor[titleCase(class)]; ok {
		return a
	}
	return ArmorUnknown
}

// titleCase builds a fresh Caser on every call; Casers are not safe for concurrent use
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}
