// Copyright 2013 - 2015 Sebastian Ruml <sebastian.ruml@gmail.com>
// Copyright 2021 - 2022 Mendel Greenberg <mendel@chabad360.me>

//Package osc provides the OpenSoundControl 1.0 codec and UDP transport used to carry MIDI over the network.
//
//Every packet is 32-bit aligned. A packet is either a Message (an address
//pattern plus typed arguments) or a Bundle (a Timetag plus nested elements).
//MIDI travels as the 'm' argument: four bytes holding port, status, data1
//and data2.
//
//Supported argument tags are i f s b t h d m T F N. Values are decoded into
//int32, float32, string, []byte, Timetag, int64, float64, MIDI, bool and nil.
//
//Sending a note:
//  client, err := osc.Dial("localhost:8953")
//  if err != nil {
//      return err
//  }
//  client.Send(osc.NewMessage("/midi", osc.MIDI{Port: 0, Status: 0x90, Data1: 60, Data2: 100}))
//
//Receiving:
//  osc.ListenAndServe(ctx, "127.0.0.1:8953", func(p osc.Packet, addr net.Addr) {
//      fmt.Println(p)
//  })
package osc

const (
	// MaxPacketSize is the largest payload a single UDP datagram can carry.
	MaxPacketSize = 65507

	bit32Size = 4
	bit64Size = 8

	secondsFrom1900To1970 = 2208988800
)
