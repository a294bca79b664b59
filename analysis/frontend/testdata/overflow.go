package overflow

func wrapUint8() uint8 {
	var x uint8 = 255
	x++
	if x == 0 {
		panic("wrapped") // @MayPanic
	}
	return x
}

func wrapInt8() int8 {
	var y int8 = 127
	y++
	if y < 0 {
		panic("wrapped") // @MayPanic
	}
	return y
}

func underflowUint8() uint8 {
	var z uint8
	z--
	if z == 255 {
		panic("wrapped") // @MayPanic
	}
	return z
}

func negateInt8(x int8) int8 {
	if x == -128 {
		y := -x
		if y < 0 {
			panic("negation wraps") // @MayPanic
		}
	}
	return x
}

func small(x uint8) uint8 {
	if x < 10 {
		y := x + 1
		if y == 0 {
			panic("cannot wrap") // @NoPanic
		}
		return y
	}
	return x
}

func truncate(n int) uint8 {
	b := uint8(n)
	if b > 255 {
		panic("out of range") // @NoPanic
	}
	return b
}

func loop8() int8 {
	var i int8
	for i < 100 {
		i++
	}
	if i != 100 {
		panic("counted") // @NoPanic
	}
	return i
}
