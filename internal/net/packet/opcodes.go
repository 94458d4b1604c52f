package packet

// ProtocolVersion is sent in C_OPCODE_HELLO and S_OPCODE_WELCOME. Clients
// with another version are refused.
const ProtocolVersion uint16 = 1

// Client → server.
const (
	C_OPCODE_HELLO   byte = 0x01 // [H version][S client name]
	C_OPCODE_SIGNAL  byte = 0x02 // [C signal bits][C held]
	C_OPCODE_TURN    byte = 0x03 // [F amount -1..1]
	C_OPCODE_SPAWN   byte = 0x04 // [S name][S shape][S control][F x][F y][F z][F mass][F half extent][F lifetime]
	C_OPCODE_DESPAWN byte = 0x05 // [Q entity id]
	C_OPCODE_STATUS  byte = 0x06
	C_OPCODE_QUIT    byte = 0x07
)

// Server → client.
const (
	S_OPCODE_WELCOME byte = 0x81 // [H version][D max actors]
	S_OPCODE_STATUS  byte = 0x82 // [Q tick][D actors][32 bytes digest]
	S_OPCODE_SPAWNED byte = 0x83 // [Q entity id][D slot]
	S_OPCODE_ERROR   byte = 0x84 // [C request opcode][S message]
)
