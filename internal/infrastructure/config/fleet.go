package config

// RobotConfig describes one robot's rosbridge endpoint and the heights of
// its storage cells, bottom to top.
type RobotConfig struct {
	Host        string    `mapstructure:"host" validate:"required"`
	Port        int       `mapstructure:"port" validate:"min=1,max=65535"`
	CellHeights []float64 `mapstructure:"cell_heights" validate:"min=1"`
}

// FleetConfig holds the robot roster and fleet-wide behavior switches.
type FleetConfig struct {
	Robots map[string]RobotConfig `mapstructure:"robots" validate:"min=1,dive"`

	// AutoFreeOnDelivery releases a robot's cell as soon as the delivery
	// leg completes, instead of waiting for an explicit free-cell call.
	AutoFreeOnDelivery bool `mapstructure:"auto_free_on_delivery"`

	// UpdateBuffer sizes the channel carrying job updates from the robot
	// handlers to the controller's persistence drain.
	UpdateBuffer int `mapstructure:"update_buffer" validate:"min=0"`
}
