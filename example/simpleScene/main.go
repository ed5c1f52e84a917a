package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/akmonengine/impact"
	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/controller"
	"github.com/go-gl/mathgl/mgl64"
)

// Scene holds the bodies of the demo
type Scene struct {
	World  *impact.World
	Ground *actor.RigidBody
	Target *actor.RigidBody
	Bullet *actor.RigidBody
	Zone   *actor.Fixture
}

// SetupScene fires a bullet at a crate resting on the ground, with a sensor
// zone in between. The bullet is fast enough to tunnel without continuous
// collision.
func SetupScene(config impact.Config, logger impact.Logger) (*Scene, error) {
	world, err := impact.NewWorld(config, logger)
	if err != nil {
		return nil, err
	}
	scene := &Scene{World: world}

	scene.Ground, err = world.CreateBody(impact.BodyDef{Type: actor.BodyTypeStatic, Position: mgl64.Vec2{0, -0.5}})
	if err != nil {
		return nil, err
	}
	if _, err = world.CreateFixture(scene.Ground, impact.DefaultFixtureDef(actor.NewBox(20, 0.5))); err != nil {
		return nil, err
	}

	scene.Target, err = world.CreateBody(impact.BodyDef{Type: actor.BodyTypeDynamic, Position: mgl64.Vec2{4, 0.5}})
	if err != nil {
		return nil, err
	}
	if _, err = world.CreateFixture(scene.Target, impact.DefaultFixtureDef(actor.NewBox(0.5, 0.5))); err != nil {
		return nil, err
	}

	scene.Bullet, err = world.CreateBody(impact.BodyDef{
		Type:           actor.BodyTypeDynamic,
		Position:       mgl64.Vec2{-6, 0.5},
		LinearVelocity: mgl64.Vec2{900, 0},
		IsBullet:       true,
	})
	if err != nil {
		return nil, err
	}
	if _, err = world.CreateFixture(scene.Bullet, impact.DefaultFixtureDef(actor.NewCircle(mgl64.Vec2{}, 0.1))); err != nil {
		return nil, err
	}

	zone, err := world.CreateBody(impact.BodyDef{Type: actor.BodyTypeStatic, Position: mgl64.Vec2{0, 0.5}})
	if err != nil {
		return nil, err
	}
	zoneDef := impact.DefaultFixtureDef(actor.NewBox(1, 1))
	zoneDef.IsSensor = true
	if scene.Zone, err = world.CreateFixture(zone, zoneDef); err != nil {
		return nil, err
	}

	friction := controller.NewTensorDryFriction(mgl64.Mat2{}, mgl64.Vec2{})
	friction.SetAxisFrictionForce(2, 2)
	friction.AddBody(scene.Target)
	if err = world.AddController(friction); err != nil {
		return nil, err
	}

	return scene, nil
}

func subscribe(world *impact.World) {
	world.Events.Subscribe(impact.CONTACT_BEGIN, func(event impact.Event) {
		e := event.(impact.ContactBeginEvent)
		fmt.Printf("  begin: %s/%s normal=%v points=%v\n", e.FixtureA.Shape.Type(), e.FixtureB.Shape.Type(), e.Normal, e.Points)
	})
	world.Events.Subscribe(impact.CONTACT_END, func(event impact.Event) {
		e := event.(impact.ContactEndEvent)
		fmt.Printf("  end: %s/%s\n", e.FixtureA.Shape.Type(), e.FixtureB.Shape.Type())
	})
	world.Events.Subscribe(impact.SENSOR_ENTER, func(event impact.Event) {
		e := event.(impact.SensorEnterEvent)
		fmt.Printf("  sensor enter: %s\n", e.Other.Shape.Type())
	})
	world.Events.Subscribe(impact.SENSOR_EXIT, func(event impact.Event) {
		e := event.(impact.SensorExitEvent)
		fmt.Printf("  sensor exit: %s\n", e.Other.Shape.Type())
	})
	world.Events.Subscribe(impact.TIME_OF_IMPACT, func(event impact.Event) {
		e := event.(impact.TimeOfImpactEvent)
		fmt.Printf("  time of impact at %.4f of the step\n", e.Alpha)
	})
	world.Events.Subscribe(impact.ON_SLEEP, func(event impact.Event) {
		fmt.Printf("  sleep: body %v\n", event.(impact.SleepEvent).Body.ID)
	})
	world.Events.Subscribe(impact.ON_WAKE, func(event impact.Event) {
		fmt.Printf("  wake: body %v\n", event.(impact.WakeEvent).Body.ID)
	})
}

func loadConfig(path string) (impact.Config, error) {
	if path == "" {
		return impact.DefaultConfig(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return impact.Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return impact.LoadConfig(f)
}

func main() {
	var (
		configPath string
		schema     bool
		steps      int
		debug      bool
	)
	flag.StringVar(&configPath, "config", "", "path to a JSON world configuration")
	flag.BoolVar(&schema, "schema", false, "print the configuration JSON schema and exit")
	flag.IntVar(&steps, "steps", 120, "number of steps to simulate")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	if schema {
		data, err := json.MarshalIndent(impact.ConfigSchema(), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	logger := impact.NewDefaultLogger("scene", debug)
	config, err := loadConfig(configPath)
	if err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}
	config.Debug = config.Debug || debug

	scene, err := SetupScene(config, logger)
	if err != nil {
		logger.Errorf("setup: %v", err)
		os.Exit(1)
	}
	subscribe(scene.World)

	const dt float64 = 1.0 / 60.0
	for step := range steps {
		fmt.Printf("--- step %d ---\n", step+1)
		if err := scene.World.Step(dt); err != nil {
			logger.Errorf("step: %v", err)
			os.Exit(1)
		}
		fmt.Printf("  bullet: %v  target: %v\n", scene.Bullet.Transform.Position, scene.Target.Transform.Position)
	}

	stats := scene.World.TOIStatistics()
	logger.Infof("%d contacts, %d proxies, tree height %d", scene.World.ContactCount(), scene.World.ProxyCount(), scene.World.TreeHeight())
	logger.Infof("toi: %d calls, %d iterations max", stats.Calls, stats.MaxIterations)
}
