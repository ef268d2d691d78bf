package blocktype

import "sync"

var (
	legacyOnce sync.Once
	legacy     *Registry
)

// Legacy returns the built-in registry of numeric block ids used by pre-flattening Java worlds.
// Only a subset of types is named; unnamed ids convert to air.
func Legacy() *Registry {
	legacyOnce.Do(func() {
		reg, err := NewRegistry("java-legacy", 4096, legacyTypes(), State{})
		if err != nil {
			panic(err)
		}
		legacy = reg
	})
	return legacy
}

func legacyTypes() []Type {
	solid := func(id uint16, name string, variants ...string) Type {
		t := Type{ID: id, Name: "minecraft:" + name, Opacity: 15}
		if len(variants) > 0 {
			t.Variants = make(map[uint8]string, len(variants))
			for i, v := range variants {
				t.Variants[uint8(i+1)] = "minecraft:" + v
			}
		}
		return t
	}
	lit := func(id uint16, name string, opacity, brightness uint8) Type {
		return Type{ID: id, Name: "minecraft:" + name, Opacity: opacity, Brightness: brightness}
	}

	return []Type{
		lit(0, "air", 0, 0),
		solid(1, "stone", "granite", "polished_granite", "diorite", "polished_diorite", "andesite", "polished_andesite"),
		solid(2, "grass"),
		solid(3, "dirt", "coarse_dirt", "podzol"),
		solid(4, "cobblestone"),
		solid(5, "planks", "spruce_planks", "birch_planks", "jungle_planks", "acacia_planks", "dark_oak_planks"),
		lit(6, "sapling", 0, 0),
		solid(7, "bedrock"),
		lit(8, "flowing_water", 3, 0),
		lit(9, "water", 3, 0),
		lit(10, "flowing_lava", 0, 15),
		lit(11, "lava", 0, 15),
		solid(12, "sand", "red_sand"),
		solid(13, "gravel"),
		solid(14, "gold_ore"),
		solid(15, "iron_ore"),
		solid(16, "coal_ore"),
		solid(17, "log"),
		lit(18, "leaves", 1, 0),
		solid(19, "sponge"),
		lit(20, "glass", 0, 0),
		solid(24, "sandstone"),
		solid(35, "wool"),
		lit(37, "yellow_flower", 0, 0),
		lit(38, "red_flower", 0, 0),
		solid(41, "gold_block"),
		solid(42, "iron_block"),
		solid(45, "brick_block"),
		solid(48, "mossy_cobblestone"),
		solid(49, "obsidian"),
		lit(50, "torch", 0, 14),
		lit(51, "fire", 0, 15),
		lit(52, "mob_spawner", 0, 0),
		lit(53, "oak_stairs", 0, 0),
		lit(54, "chest", 0, 0),
		solid(56, "diamond_ore"),
		solid(57, "diamond_block"),
		solid(58, "crafting_table"),
		solid(61, "furnace"),
		lit(62, "lit_furnace", 15, 13),
		lit(63, "standing_sign", 0, 0),
		lit(64, "wooden_door", 0, 0),
		lit(65, "ladder", 0, 0),
		lit(66, "rail", 0, 0),
		lit(68, "wall_sign", 0, 0),
		solid(73, "redstone_ore"),
		lit(74, "lit_redstone_ore", 15, 9),
		lit(76, "redstone_torch", 0, 7),
		lit(78, "snow_layer", 0, 0),
		lit(79, "ice", 3, 0),
		solid(80, "snow"),
		lit(81, "cactus", 0, 0),
		solid(82, "clay"),
		solid(87, "netherrack"),
		solid(88, "soul_sand"),
		lit(89, "glowstone", 15, 15),
		lit(90, "portal", 0, 11),
		lit(91, "lit_pumpkin", 15, 15),
		lit(102, "glass_pane", 0, 0),
		solid(98, "stonebrick", "mossy_stonebrick", "cracked_stonebrick", "chiseled_stonebrick"),
		solid(112, "nether_brick"),
		solid(121, "end_stone"),
		lit(124, "lit_redstone_lamp", 15, 15),
		solid(123, "redstone_lamp"),
		solid(133, "emerald_block"),
		lit(138, "beacon", 0, 15),
		solid(155, "quartz_block"),
		solid(159, "stained_hardened_clay"),
		lit(160, "stained_glass_pane", 0, 0),
		lit(169, "sea_lantern", 15, 15),
		solid(172, "hardened_clay"),
		solid(173, "coal_block"),
		lit(198, "end_rod", 0, 14),
		solid(251, "concrete"),
	}
}
