package main

import "i2c-scan/i2cdev"

func openI2CDev(name string, khz int) (transport, error) {
	return i2cdev.Open(name, khz)
}
