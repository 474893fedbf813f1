// Package common contains definitions of fundamental types shared by the image
// cache and the FAT12 engine.
package common

type LogicalBlock uint

// CeilDiv returns the number of `unit`-sized pieces needed to hold `size`.
func CeilDiv(size, unit uint) uint {
	return (size + unit - 1) / unit
}
