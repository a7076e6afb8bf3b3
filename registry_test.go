package qsim

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func smallConfig(ceiling int64) *Config {
	cfg := NewConfig()
	cfg.MemoryCeilingBytes = ceiling
	return cfg
}

func TestRegistryCapacity(t *testing.T) {
	Convey("Given a registry with a tight ceiling", t, func() {
		// Room for one 4-qubit circuit (256 bytes) and not much more.
		reg := NewRegistry(smallConfig(300), nil)

		Convey("A circuit over the ceiling fails with zero footprint", func() {
			_, err := reg.CreateCircuit("huge", 10)
			So(KindOf(err), ShouldEqual, CapacityError)
			So(reg.BytesInUse(), ShouldEqual, 0)
			So(reg.CircuitCount(), ShouldEqual, 0)
		})

		Convey("Aggregate accounting spans circuits", func() {
			_, err := reg.CreateCircuit("a", 4)
			So(err, ShouldBeNil)
			So(reg.BytesInUse(), ShouldEqual, 256)

			// 2 qubits = 64 bytes, individually fine, collectively over.
			_, err = reg.CreateCircuit("b", 2)
			So(KindOf(err), ShouldEqual, CapacityError)
			So(reg.BytesInUse(), ShouldEqual, 256)

			Convey("Releasing frees headroom for new circuits", func() {
				reg.ReleaseCircuit("a")
				So(reg.BytesInUse(), ShouldEqual, 0)

				_, err := reg.CreateCircuit("b", 2)
				So(err, ShouldBeNil)
				So(reg.BytesInUse(), ShouldEqual, 64)
			})
		})

		Convey("An absurd qubit count cannot overflow the accounting", func() {
			_, err := reg.CreateCircuit("overflow", 63)
			So(KindOf(err), ShouldEqual, CapacityError)
		})
	})
}

func TestRegistryIdentity(t *testing.T) {
	Convey("Given a registry", t, func() {
		reg := NewRegistry(nil, nil)

		Convey("Duplicate ids are rejected", func() {
			_, err := reg.CreateCircuit("dup", 2)
			So(err, ShouldBeNil)

			_, err = reg.CreateCircuit("dup", 3)
			So(KindOf(err), ShouldEqual, DuplicateIdError)
		})

		Convey("Unknown lookups classify explicitly", func() {
			_, err := reg.Circuit("ghost")
			So(KindOf(err), ShouldEqual, UnknownCircuitError)

			_, err = reg.Problem("ghost")
			So(KindOf(err), ShouldEqual, UnknownProblemError)
		})

		Convey("Release is idempotent", func() {
			_, err := reg.CreateCircuit("once", 2)
			So(err, ShouldBeNil)

			reg.ReleaseCircuit("once")
			reg.ReleaseCircuit("once")
			reg.ReleaseCircuit("never-existed")
			So(reg.BytesInUse(), ShouldEqual, 0)
		})

		Convey("Non-positive qubit counts are rejected", func() {
			_, err := reg.CreateCircuit("zero", 0)
			So(KindOf(err), ShouldEqual, InvalidQubitIndexError)
		})

		Convey("Close releases everything", func() {
			_, err := reg.CreateCircuit("x", 3)
			So(err, ShouldBeNil)
			reg.Close()
			So(reg.CircuitCount(), ShouldEqual, 0)
			So(reg.BytesInUse(), ShouldEqual, 0)
		})
	})
}

func TestMemoryGovernor(t *testing.T) {
	Convey("Given a memory governor", t, func() {
		mg := NewMemoryGovernor(1024)

		Convey("Reservation tracks usage against the ceiling", func() {
			So(mg.Reserve(512), ShouldBeNil)
			So(mg.InUse(), ShouldEqual, 512)
			So(mg.Limit(), ShouldBeFalse)

			So(mg.Reserve(512), ShouldBeNil)
			So(mg.Limit(), ShouldBeTrue)

			err := mg.Reserve(1)
			So(KindOf(err), ShouldEqual, CapacityError)
			So(mg.InUse(), ShouldEqual, 1024)

			mg.Release(1024)
			So(mg.InUse(), ShouldEqual, 0)
			So(mg.Limit(), ShouldBeFalse)
		})

		Convey("Observe mirrors usage into metrics", func() {
			m := NewMetrics()
			So(mg.Reserve(128), ShouldBeNil)
			mg.Observe(m)
			So(m.Snapshot().BytesInUse, ShouldEqual, 128)
		})
	})
}
