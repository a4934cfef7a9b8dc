package models

// DefaultFloorCapacity is the id stride between floors.
const DefaultFloorCapacity = 1000

// DisplayID returns the id a park shows on floor layer (1-based).
func DisplayID(baseID, layer, capacity int) int {
	if layer < 1 {
		layer = 1
	}
	return baseID + (layer-1)*capacity
}

// BaseID resolves a displayed id back to the layer-1 id. Ids up to the
// capacity are already base ids. Above it the id is taken mod capacity, so
// an exact multiple (2000 with capacity 1000) resolves to base 0 on the
// layer LayerOf reports (3), never to base 1000 on layer 2.
func BaseID(displayID, capacity int) int {
	if capacity <= 0 || displayID <= capacity {
		return displayID
	}
	return displayID % capacity
}

// LayerOf returns the floor a displayed id belongs to.
func LayerOf(displayID, capacity int) int {
	if capacity <= 0 || displayID <= capacity {
		return 1
	}
	return displayID/capacity + 1
}
