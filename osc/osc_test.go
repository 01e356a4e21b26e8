package osc

const zero = string(byte(0))

// nulls returns a string of `i` nulls.
func nulls(i int) string {
	s := ""
	for j := 0; j < i; j++ {
		s += zero
	}
	return s
}

type testCase struct {
	name    string
	obj     Packet
	raw     []byte
	wantErr bool
}

var midiMessage = &Message{
	Address:   "/midi",
	Arguments: []interface{}{MIDI{Port: 1, Status: 0x90, Data1: 60, Data2: 100}},
}

var messageTestCases = []testCase{
	{
		name: "midi",
		obj:  midiMessage,
		raw:  []byte("/midi" + nulls(3) + ",m" + nulls(2) + "\x01\x90\x3c\x64"),
	},
	{
		name: "multiple_midi",
		obj: NewMessage("/midi",
			MIDI{Port: 0, Status: 0x80, Data1: 40, Data2: 0},
			MIDI{Port: 2, Status: 0xb0, Data1: 7, Data2: 127}),
		raw: []byte("/midi" + nulls(3) + ",mm" + nulls(1) + "\x00\x80\x28\x00" + "\x02\xb0\x07\x7f"),
	},
	{
		name: "int32_string",
		obj:  NewMessage("/address", int32(1122), "hi"),
		raw:  []byte("/address" + nulls(4) + ",is" + nulls(1) + "\x00\x00\x04\x62" + "hi" + nulls(2)),
	},
	{
		name: "bools_nil",
		obj:  NewMessage("/t", true, false, nil),
		raw:  []byte("/t" + nulls(2) + ",TFN" + nulls(4)),
	},
	{
		name: "float32",
		obj:  NewMessage("/f", float32(1.5)),
		raw:  []byte("/f" + nulls(2) + ",f" + nulls(2) + "\x3f\xc0\x00\x00"),
	},
	{
		name: "int64",
		obj:  NewMessage("/h", int64(-2)),
		raw:  []byte("/h" + nulls(2) + ",h" + nulls(2) + "\xff\xff\xff\xff\xff\xff\xff\xfe"),
	},
	{
		name: "blob",
		obj:  NewMessage("/b", []byte{1, 2, 3}),
		raw:  []byte("/b" + nulls(2) + ",b" + nulls(2) + "\x00\x00\x00\x03" + "\x01\x02\x03" + nulls(1)),
	},
	{
		name: "timetag",
		obj:  NewMessage("/t", NewImmediateTimetag()),
		raw:  []byte("/t" + nulls(2) + ",t" + nulls(2) + nulls(7) + "\x01"),
	},
	{
		name: "no_arguments",
		obj:  &Message{Address: "/empty"},
		raw:  []byte("/empty" + nulls(2) + "," + nulls(3)),
	},
}

var bundleTestCases = []testCase{
	{
		name: "empty",
		obj:  &Bundle{Timetag: NewImmediateTimetag()},
		raw:  []byte("#bundle" + nulls(1) + nulls(7) + "\x01"),
	},
	{
		name: "one_message",
		obj:  NewBundle(midiMessage),
		raw: []byte("#bundle" + nulls(1) + nulls(7) + "\x01" +
			nulls(3) + "\x10" + "/midi" + nulls(3) + ",m" + nulls(2) + "\x01\x90\x3c\x64"),
	},
	{
		name: "nested",
		obj:  NewBundle(NewBundle(midiMessage)),
		raw: []byte("#bundle" + nulls(1) + nulls(7) + "\x01" +
			nulls(3) + "\x24" +
			"#bundle" + nulls(1) + nulls(7) + "\x01" +
			nulls(3) + "\x10" + "/midi" + nulls(3) + ",m" + nulls(2) + "\x01\x90\x3c\x64"),
	},
}
