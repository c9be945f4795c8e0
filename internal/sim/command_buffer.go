package sim

import (
	"sync"

	"ballfield/server/internal/telemetry"
)

const (
	commandBufferOccupancyMetricKey = "match_command_buffer_occupancy"
	commandBufferOverflowMetricKey  = "match_command_buffer_overflow_total"
	commandBufferThrottledMetricKey = "match_command_buffer_throttled_total"
)

// CommandBuffer stages operator commands in a fixed-size ring until the loop
// applies them between ticks. Commands addressed to a robot also count
// against that robot's share of the buffer, which frees up on Drain. It is
// safe for concurrent producers and a single consumer.
type CommandBuffer struct {
	mu       sync.Mutex
	data     []Command
	head     int
	tail     int
	count    int
	perRobot map[string]int
	limit    int
	metrics  telemetry.Metrics
}

// NewCommandBuffer constructs a ring buffer with the provided capacity.
// perRobotLimit caps how many staged commands may name the same robot;
// zero or less disables the cap.
func NewCommandBuffer(capacity, perRobotLimit int, metrics telemetry.Metrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{
		data:     make([]Command, capacity),
		perRobot: make(map[string]int),
		limit:    perRobotLimit,
		metrics:  metrics,
	}
}

// Capacity reports the maximum number of commands the buffer can hold.
func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Push stages a command. It returns an empty reason on success, otherwise
// CommandRejectQueueLimit when the robot already has its share staged or
// CommandRejectQueueFull when the ring is full.
func (b *CommandBuffer) Push(cmd Command) string {
	if b == nil {
		return CommandRejectQueueFull
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit > 0 && cmd.RobotID != "" && b.perRobot[cmd.RobotID] >= b.limit {
		b.addMetricLocked(commandBufferThrottledMetricKey)
		return CommandRejectQueueLimit
	}
	if b.count == len(b.data) {
		b.addMetricLocked(commandBufferOverflowMetricKey)
		return CommandRejectQueueFull
	}
	b.data[b.tail] = cmd
	b.tail = (b.tail + 1) % len(b.data)
	b.count++
	if cmd.RobotID != "" {
		b.perRobot[cmd.RobotID]++
	}
	b.storeOccupancyLocked()
	return ""
}

// Drain returns all staged commands in FIFO order, clears the buffer and
// resets every robot's share.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	commands := make([]Command, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head + i) % len(b.data)
		commands[i] = b.data[idx]
		b.data[idx] = Command{}
	}
	b.head = 0
	b.tail = 0
	b.count = 0
	clear(b.perRobot)
	b.storeOccupancyLocked()
	return commands
}

// Len reports the number of staged commands.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// PendingFor reports how many staged commands name robotID.
func (b *CommandBuffer) PendingFor(robotID string) int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.perRobot[robotID]
}

func (b *CommandBuffer) addMetricLocked(key string) {
	if b.metrics != nil {
		b.metrics.Add(key, 1)
	}
}

func (b *CommandBuffer) storeOccupancyLocked() {
	if b.metrics == nil {
		return
	}
	b.metrics.Store(commandBufferOccupancyMetricKey, uint64(b.count))
}
