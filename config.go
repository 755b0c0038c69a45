package rcb

import "fmt"

const (
	//ConfigDefaultRingCapacity in bytes 4MB
	ConfigDefaultRingCapacity = 4194304 //4MB
)

//RingConfig represents a ring buffer config.
type RingConfig struct {
	Capacity int //fixed backing region size in bytes
}

//Validate validates that config is valid or returns an error.
func (c *RingConfig) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("RingConfig.Capacity was not set or not positive: %v", c.Capacity)
	}
	return nil
}

//NewRingConfig creates a new ring config with the passed in capacity.
func NewRingConfig(capacity int) (*RingConfig, error) {
	result := &RingConfig{Capacity: capacity}
	err := result.Validate()
	if err != nil {
		return nil, err
	}
	return result, nil
}

//NewDefaultRingConfig creates a new ring config with default capacity.
func NewDefaultRingConfig() *RingConfig {
	return &RingConfig{Capacity: ConfigDefaultRingCapacity}
}
